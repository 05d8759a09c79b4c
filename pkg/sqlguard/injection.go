package sqlguard

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a parameter value that failed the
// libinjection check.
type InjectionCheckResult struct {
	IsSQLi      bool
	Fingerprint string
	ParamName   string
	ParamValue  any
}

// CheckParameterForInjection runs libinjection against a parameter value
// that will be interpolated into a parameterized query. Only strings are
// checked; other types cannot carry injection payloads.
//
// Returns nil when the value is clean.
func CheckParameterForInjection(paramName string, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			ParamName:   paramName,
			ParamValue:  value,
		}
	}

	return nil
}

// CheckAllParameters validates every parameter value and returns one
// result per dirty parameter. An empty slice means all values are clean.
func CheckAllParameters(params map[string]any) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for name, value := range params {
		if result := CheckParameterForInjection(name, value); result != nil {
			results = append(results, result)
		}
	}
	return results
}
