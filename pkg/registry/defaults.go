package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultMappings returns the built-in table catalog. The keyword and alias
// lists are deliberately language-mixed (Indonesian/English) to match how
// users actually phrase questions; treat them as data, not logic.
func DefaultMappings() []TableMapping {
	return []TableMapping{
		{
			TableName: "RecordOBCard",
			Keywords: []string{
				"observation card", "ob card", "obcard", "observation c",
				"kartu observasi", "observasi", "obs card", "safety card",
				"laporan observasi", "safety observation",
			},
			FieldAliases: map[string]string{
				// ID / tracking
				"id":              "TrackingNum",
				"id ob card":      "TrackingNum",
				"nomor":           "TrackingNum",
				"nomor tracking":  "TrackingNum",
				"tracking number": "TrackingNum",

				// Employee info
				"nama":             "EmpName",
				"nama orang":       "EmpName",
				"nama pembuat":     "EmpName",
				"nama yang buat":   "EmpName",
				"nama submit":      "EmpName",
				"nama raise":       "EmpName",
				"nama create":      "EmpName",
				"orang yang submit": "EmpName",
				"orang yang raise": "EmpName",
				"orang yang create": "EmpName",
				"orang yang buat":  "EmpName",
				"pembuat":          "EmpName",
				"creator":          "EmpName",
				"atas nama":        "EmpName",
				"an":               "EmpName",
				"a.n":              "EmpName",
				"a/n":              "EmpName",

				// Employee ID
				"id employee": "EmpID",
				"id karyawan": "EmpID",
				"id pembuat":  "EmpID",
				"id orang":    "EmpID",
				"employee id": "EmpID",
				"badge id":    "EmpID",

				// Evidence / image
				"evidence":     "ImageFinding",
				"bukti":        "ImageFinding",
				"foto":         "ImageFinding",
				"gambar":       "ImageFinding",
				"gambar obcard": "ImageFinding",
				"foto obcard":  "ImageFinding",
				"image":        "ImageFinding",
				"picture":      "ImageFinding",
				"dokumentasi":  "ImageFinding",
			},
			Description: "Data observation card (kartu observasi keselamatan kerja)",
		},
		{
			TableName: "employees",
			Keywords: []string{
				"karyawan", "employee", "pegawai", "staff",
				"pekerja", "tenaga kerja", "SDM",
			},
			FieldAliases: map[string]string{
				"nama":          "name",
				"badge":         "badgeId",
				"departemen":    "department",
				"jabatan":       "designation",
				"email":         "email",
				"jenis kelamin": "gender",
				"status":        "employmentStatus",
			},
			PublicFields:     []string{"name", "department", "designation"},
			RestrictedFields: []string{"badgeId", "email", "gender", "employmentStatus"},
			Description:      "Data karyawan perusahaan",
		},
	}
}

// mappingsFile is the YAML shape of an external mapping catalog.
type mappingsFile struct {
	Tables []TableMapping `yaml:"tables"`
}

// LoadMappings reads table mappings from a YAML file. An empty path returns
// the built-in defaults, so the catalog is extensible without code changes.
func LoadMappings(path string) ([]TableMapping, error) {
	if path == "" {
		return DefaultMappings(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mappings file: %w", err)
	}

	var file mappingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse mappings file: %w", err)
	}
	if len(file.Tables) == 0 {
		return nil, fmt.Errorf("mappings file %s defines no tables", path)
	}

	return file.Tables, nil
}
