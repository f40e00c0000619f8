package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtract_plain(t *testing.T) {
	got, err := Extract([]byte("Spindle maintenance\nReplace filters weekly"), ".txt")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Spindle maintenance\nReplace filters weekly" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_plainInvalidUTF8(t *testing.T) {
	got, err := Extract([]byte("hello\x80world"), ".md")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "hello�world" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_unknownExtensionFallsBackToPlain(t *testing.T) {
	got, err := Extract([]byte("raw manual content"), ".xyz")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "raw manual content" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_csv(t *testing.T) {
	got, err := Extract([]byte("part,torque\nM8 bolt,25 Nm\n"), ".csv")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "part\ttorque\nM8 bolt\t25 Nm" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Torque settings")
	f.SetCellValue("Sheet1", "A2", "M8 bolt")
	f.SetCellValue("Sheet1", "B2", "25 Nm")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := Extract(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "Sheet1\nTorque settings\nM8 bolt\t25 Nm"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// buildDocx assembles a minimal .docx archive around the given document body.
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtract_docx(t *testing.T) {
	doc := buildDocx(t, `<w:document><w:body>`+
		`<w:p w:rsidR="00A"><w:r><w:t>Safety instructions</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t xml:space="preserve">wear ear protection</w:t></w:r></w:p>`+
		`</w:body></w:document>`)

	got, err := Extract(doc, ".docx")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Safety instructions wear ear protection" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_docxNotZip(t *testing.T) {
	if _, err := Extract([]byte("plain text, not a zip"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}
}

func TestExtract_docxMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("unrelated.xml")
	_, _ = w.Write([]byte("<x/>"))
	_ = zw.Close()

	if _, err := Extract(buf.Bytes(), ".docx"); err == nil {
		t.Error("expected error when word/document.xml is absent")
	}
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := ExtractFile(path)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if got != "File content" {
		t.Errorf("got %q", got)
	}
}

func TestExtractFile_nonexistent(t *testing.T) {
	if _, err := ExtractFile("/nonexistent/manual.pdf"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestSupported(t *testing.T) {
	for _, ext := range []string{".pdf", ".DOCX", ".txt", ".md", ".xlsx", ".csv"} {
		if !Supported(ext) {
			t.Errorf("Supported(%q) = false", ext)
		}
	}
	if Supported(".exe") {
		t.Error("Supported(.exe) = true")
	}
}

func TestExtensions(t *testing.T) {
	exts := Extensions()
	if len(exts) != 6 {
		t.Fatalf("got %d extensions", len(exts))
	}
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			t.Errorf("extension %q missing leading dot", ext)
		}
	}
}
