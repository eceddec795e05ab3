package stringutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var caseConversionTests = []struct {
	pascalCase string
	snakeCase  string
}{
	{"ID", "id"},
	{"Service", "service"},
	{"ServiceID", "service_id"},
	{"VideoID", "video_id"},
	{"UploaderID", "uploader_id"},
	{"UploadDate", "upload_date"},
	{"Filepath", "filepath"},
	{"ChapterUID", "chapter_uid"},
	{"StartMS", "start_ms"},
	{"LogDebugLevels", "log_debug_levels"},
	{"RemuxConcurrency", "remux_concurrency"},
}

func TestPascalToSnake(t *testing.T) {
	for _, tc := range caseConversionTests {
		t.Run(tc.pascalCase, func(t *testing.T) {
			a := assert.New(t)
			a.Equal(tc.snakeCase, PascalToSnake(tc.pascalCase))
		})
	}
}

func BenchmarkPascalToSnake(b *testing.B) {
	for _, tc := range caseConversionTests {
		b.Run(tc.pascalCase, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				PascalToSnake(tc.pascalCase)
			}
		})
	}
}

func TestEllipsize(t *testing.T) {
	for _, tc := range []struct {
		in  string
		n   int
		out string
	}{
		{"short", 10, "short"},
		{"  padded  ", 10, "padded"},
		{"exactly ten", 11, "exactly ten"},
		{"the quick brown fox jumps", 18, "the quick brown…"},
		{"abcdefghijklmnop", 8, "abcdefgh…"},
		{"héllo wörld again", 12, "héllo wörld…"},
		{"anything", 0, "anything"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.out, Ellipsize(tc.in, tc.n))
		})
	}
}
