package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/resolver"
	"github.com/cladtek/dbchat-engine/pkg/session"
)

func TestBuildWithRowData(t *testing.T) {
	c := NewComposer(5, zap.NewNop())

	prompt, direct := c.Build(Request{
		Question: "tampilkan obcard terbaru",
		Outcome: resolver.RowsOutcome{
			Rows:        []map[string]any{{"TrackingNum": "OB-001", "Problem": "Coating"}},
			SQL:         "SELECT TOP 10 * FROM view_obcard",
			TableName:   "view_obcard",
			Description: "Data obcard",
		},
	})

	require.Empty(t, direct)
	assert.Contains(t, prompt, "OB-001")
	assert.Contains(t, prompt, "tampilkan obcard terbaru")
	assert.Contains(t, prompt, "JANGAN PERNAH menambahkan emoji atau simbol debug info")
	assert.NotContains(t, prompt, "SELECT TOP 10", "raw SQL must not leak into the prompt")
}

func TestBuildCountOutcome(t *testing.T) {
	c := NewComposer(5, zap.NewNop())

	prompt, direct := c.Build(Request{
		Question: "berapa jumlah obcard?",
		Outcome: resolver.CountOutcome{
			Value:       42,
			Description: "Jumlah obcard",
		},
	})

	require.Empty(t, direct)
	assert.Contains(t, prompt, `"count": 42`)
}

func TestBuildSuggestions(t *testing.T) {
	c := NewComposer(5, zap.NewNop())

	prompt, direct := c.Build(Request{
		Question: "cari karyawan bernama budi",
		Outcome: resolver.SuggestionsOutcome{
			SearchedName: "budi",
			Names:        []string{"Budiman", "Budi Santoso"},
		},
	})

	require.Empty(t, direct)
	assert.Contains(t, prompt, "name_suggestions")
	assert.Contains(t, prompt, `"budi" TIDAK ditemukan`)
	assert.Contains(t, prompt, "maksimal 3 nama")
	assert.Contains(t, prompt, "Budi Santoso")
}

func TestBuildAccessDeniedBypassesModel(t *testing.T) {
	c := NewComposer(5, zap.NewNop())

	prompt, direct := c.Build(Request{
		Question: "tampilkan semua karyawan",
		Outcome:  resolver.AccessDeniedOutcome{Message: "Anda tidak memiliki akses untuk melihat data karyawan. Hanya user tertentu yang dapat mengakses informasi ini."},
	})

	assert.Empty(t, prompt)
	assert.Contains(t, direct, "tidak memiliki akses")
}

func TestBuildNilOutcomeAnswersFromKnowledge(t *testing.T) {
	c := NewComposer(5, zap.NewNop())

	prompt, direct := c.Build(Request{Question: "apa itu coating?"})

	require.Empty(t, direct)
	assert.Contains(t, prompt, "Jawab pertanyaan ini dengan pengetahuanmu")
	assert.NotContains(t, prompt, "Data yang saya temukan")
}

func TestBuildEmptyOutcome(t *testing.T) {
	c := NewComposer(5, zap.NewNop())

	prompt, direct := c.Build(Request{
		Question: "obcard milik zzz",
		Outcome:  resolver.EmptyOutcome{Question: "obcard milik zzz", TableName: "view_obcard"},
	})

	require.Empty(t, direct)
	assert.Contains(t, prompt, "tidak menemukan data yang cocok")
}

func TestBuildExternalModeFraming(t *testing.T) {
	c := NewComposer(5, zap.NewNop())

	prompt, _ := c.Build(Request{Question: "halo", Mode: "external"})
	assert.Contains(t, prompt, "MODE: external")

	prompt, _ = c.Build(Request{Question: "halo", Mode: "internal"})
	assert.NotContains(t, prompt, "MODE: external")
}

func TestTranscriptBounded(t *testing.T) {
	c := NewComposer(2, zap.NewNop())

	var history []session.Message
	for _, content := range []string{"satu", "dua", "tiga", "empat", "lima", "enam"} {
		history = append(history,
			session.Message{Role: "user", Content: content},
			session.Message{Role: "assistant", Content: "re: " + content},
		)
	}

	prompt, _ := c.Build(Request{Question: "lanjut", History: history})

	assert.Contains(t, prompt, "CONVERSATION HISTORY:")
	assert.Contains(t, prompt, "User: lima")
	assert.Contains(t, prompt, "Assistant: re: enam")
	assert.NotContains(t, prompt, "User: empat", "older exchanges must be dropped")
}

func TestDebugTrailerRoundTrip(t *testing.T) {
	answer := "Ada 42 obcard bulan ini."

	withTrailer := AppendDebugTrailer(answer, DebugInfo{
		TableName: "view_obcard",
		SQL:       "SELECT COUNT(*) FROM view_obcard",
		Aliases:   map[string]string{"TrackingNum": "nomor tracking"},
	})

	assert.Contains(t, withTrailer, "**🔧 DEBUG INFO**")
	assert.Contains(t, withTrailer, "📊 Datasource: view_obcard")
	assert.Contains(t, withTrailer, "🔍 SQL Query: `SELECT COUNT(*) FROM view_obcard`")
	assert.Contains(t, withTrailer, "TrackingNum → nomor tracking")

	assert.Equal(t, answer, StripDebugTrailer(withTrailer))
}

func TestDebugTrailerWithoutQuery(t *testing.T) {
	withTrailer := AppendDebugTrailer("Jawaban umum.", DebugInfo{})

	assert.Contains(t, withTrailer, "📊 Datasource: tidak ada (jawaban AI)")
	assert.Contains(t, withTrailer, "🔍 SQL Query: tidak ada")
}

func TestStripDebugTrailerLeavesCleanText(t *testing.T) {
	clean := "Tidak ada trailer di sini."
	assert.Equal(t, clean, StripDebugTrailer(clean))
}

func TestMaskSensitiveData(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "password assignment",
			in:   "login dengan password: rahasia123 ya",
			want: "login dengan password: **** ya",
		},
		{
			name: "long token partially masked",
			in:   "token sk-abc123def456ghi789jkl012mno345pq dipakai",
			want: "token sk-abc12...45pq dipakai",
		},
		{
			name: "long plain word untouched",
			in:   "pertanggungjawabannyasecaramenyeluruh tetap utuh",
			want: "pertanggungjawabannyasecaramenyeluruh tetap utuh",
		},
		{
			name: "email local part truncated",
			in:   "hubungi fernando.siboro@cladtek.com segera",
			want: "hubungi fer***@cladtek.com segera",
		},
		{
			name: "short email local part kept",
			in:   "cc ke ops@cladtek.com",
			want: "cc ke ops@cladtek.com",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MaskSensitiveData(tc.in))
		})
	}
}
