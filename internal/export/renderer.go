package export

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/reportmill/internal/models"
	"github.com/reportmill/internal/report"
)

var ErrUnsupportedFormat = fmt.Errorf("unsupported export format")

// Artifact is one rendered report file.
type Artifact struct {
	FileName string
	Content  []byte
	Size     int64
	MIMEType string
}

// Options tune the document renderer; the other formats ignore them.
type Options struct {
	Orientation string // "P" (default) or "L"
	PageSize    string // "A4" (default), "Letter", "Legal"
}

// Render produces a file artifact for the requested format. The input report
// is read-only; renderers never modify it.
func Render(rep *report.Report, format models.ExportFormat, opts Options) (*Artifact, error) {
	var (
		content []byte
		mime    string
		err     error
	)

	switch format {
	case models.FormatJSON:
		content, mime, err = renderJSON(rep)
	case models.FormatCSV:
		content, mime, err = renderCSV(rep)
	case models.FormatExcel:
		content, mime, err = renderExcel(rep)
	case models.FormatPDF:
		content, mime, err = renderPDF(rep, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	return &Artifact{
		FileName: fileName(rep, format),
		Content:  content,
		Size:     int64(len(content)),
		MIMEType: mime,
	}, nil
}

func fileName(rep *report.Report, format models.ExportFormat) string {
	name := slug(rep.Metadata.Title)
	if name == "" {
		name = slug(rep.Metadata.ReportType)
	}
	return fmt.Sprintf("%s-%s.%s", name, rep.Metadata.GeneratedAt.Format("20060102-150405"), format)
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// columnTitle converts an identifier-style column name to a human heading:
// "studentName" and "student_name" both become "Student Name".
func columnTitle(col string) string {
	var words []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}

	for _, r := range col {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
