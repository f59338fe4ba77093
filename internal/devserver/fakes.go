package devserver

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/resumeforge/tailor-client/internal/core/document"
	"github.com/resumeforge/tailor-client/internal/core/domain"
)

// Rendered PDFs carry their source document on this comment line, so a PDF
// produced by generate-pdf parses back to the same resume.
const embedMarker = "%resumeforge:"

var errNotPDF = errors.New("could not extract text from PDF")

// tailor derives a job-specific copy of base. The base itself is not touched.
func tailor(base *domain.Resume, jd domain.JobDescription) *domain.Resume {
	out := base.Clone()

	target := "this role"
	if jd.Title != "" {
		target = jd.Title
		if jd.Company != "" {
			target += " at " + jd.Company
		}
	}
	summary := fmt.Sprintf("Tailored for %s: %s", target, firstSentence(jd.RawText))
	if base.Summary != "" {
		summary += " " + base.Summary
	}
	out.Summary = summary

	words := keywords(jd.RawText)
	for i := range out.Skills {
		out.Skills[i].Skills = promote(out.Skills[i].Skills, words)
	}
	return out
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".!?\n"); i >= 0 {
		return strings.TrimSpace(text[:i+1])
	}
	return text
}

func keywords(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '+' || r == '#')
	}) {
		out[w] = true
	}
	return out
}

// promote moves skills mentioned in the job description to the front,
// keeping relative order otherwise.
func promote(skills []string, words map[string]bool) []string {
	if len(skills) == 0 {
		return skills
	}
	hit := make([]string, 0, len(skills))
	rest := make([]string, 0, len(skills))
	for _, s := range skills {
		if words[strings.ToLower(s)] {
			hit = append(hit, s)
		} else {
			rest = append(rest, s)
		}
	}
	return append(hit, rest...)
}

// renderPDF produces a one-page PDF showing the contact name.
func renderPDF(doc *domain.Resume) ([]byte, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	content := fmt.Sprintf("BT /F1 18 Tf 72 720 Td (%s) Tj ET", pdfEscape(doc.Contact.Name))
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	buf.WriteString(embedMarker + base64.StdEncoding.EncodeToString(payload) + "\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes(), nil
}

func pdfEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// parsePDF recovers the document embedded by renderPDF. Other PDFs yield a
// skeleton resume named after the file.
func parsePDF(filename string, data []byte) (*domain.Resume, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, errNotPDF
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, embedMarker) {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, embedMarker))
		if err != nil {
			return nil, errNotPDF
		}
		return document.Decode(raw)
	}

	return &domain.Resume{Contact: domain.ContactInfo{Name: nameFromFile(filename)}}, nil
}

func nameFromFile(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	parts := strings.FieldsFunc(stem, func(r rune) bool { return r == '_' || r == '-' || r == ' ' || r == '.' })
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	if len(parts) == 0 {
		return "Unnamed Candidate"
	}
	return strings.Join(parts, " ")
}
