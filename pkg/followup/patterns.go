package followup

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPatternGroups returns the built-in trigger phrase tables.
// Order matters: detection walks the groups top to bottom.
func DefaultPatternGroups() []PatternGroup {
	return []PatternGroup{
		{
			Patterns: []string{
				"apa saja", "sebutkan", "tampilkan", "show me", "list",
				"siapa saja", "show details", "tampilkan detail", "tolong sebutkan",
				"tampilkan semua", "show all", "detailnya", "the details",
				"yang mana", "which ones", "namanya", "nama-namanya",
				"daftarnya", "the list", "listnya",
				"minta", "saya minta", "tolong", "tolong tampilkan", "coba tampilkan",
				"bisa tampilkan", "dapat tampilkan", "boleh tampilkan",
				"kasih lihat", "show", "display", "coba", "coba lihat",
			},
			Type:        DetailRequest,
			Description: "User meminta detail/list dari hasil sebelumnya",
		},
		{
			Patterns: []string{
				"yang", "yang mana", "which", "dengan", "with",
				"yang ada", "yang punya", "yang memiliki", "with the",
				"di", "pada", "at", "in the",
				"hanya", "hanya yang", "hanya dari", "cuma", "cuma yang",
				"saja", "aja", "filter", "pilih yang",
			},
			Type:        FilterRequest,
			Description: "User menambahkan filter/kondisi",
		},
		{
			Patterns: []string{
				"tahun", "year", "bulan", "month", "minggu", "week",
				"hari ini", "today", "kemarin", "yesterday",
				"bulan ini", "this month", "tahun ini", "this year",
				"yang 2024", "yang 2025", "di 2024", "di 2025",
			},
			Type:        TimeFilter,
			Description: "User menambahkan filter waktu",
		},
		{
			Patterns: []string{
				"bagaimana dengan", "how about", "kalau", "what about",
				"dan", "bandingkan", "compare", "versus", "vs",
			},
			Type:        ComparisonRequest,
			Description: "User membandingkan dengan data lain",
		},
		{
			Patterns: []string{
				"berapa", "how many", "total", "jumlah", "count",
				"ada berapa", "how much", "rata-rata", "average",
			},
			Type:        StatisticRequest,
			Description: "User meminta statistik",
		},
	}
}

// DefaultEntities returns the built-in topic keyword table.
func DefaultEntities() []Entity {
	return []Entity{
		{Keywords: []string{"department", "dept", "divisi", "departemen"}, Type: "department"},
		{Keywords: []string{"karyawan", "employee", "pegawai", "staff", "pekerja"}, Type: "employee"},
		{Keywords: []string{"observation card", "obcard", "ob card", "observasi", "kartu observasi"}, Type: "obcard"},
		{Keywords: []string{"ticket", "tiket", "ticketing", "helpdesk", "it support"}, Type: "ticket"},
	}
}

type patternsFile struct {
	Groups   []PatternGroup `yaml:"followupPatterns"`
	Entities []Entity       `yaml:"entities"`
}

// LoadPatterns reads phrase tables from a YAML file, for deployments
// that tune the trigger phrases without a rebuild.
func LoadPatterns(path string) ([]PatternGroup, []Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading follow-up patterns: %w", err)
	}
	var file patternsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("parsing follow-up patterns: %w", err)
	}
	if len(file.Groups) == 0 {
		return nil, nil, fmt.Errorf("follow-up patterns at %s define no groups", path)
	}
	return file.Groups, file.Entities, nil
}
