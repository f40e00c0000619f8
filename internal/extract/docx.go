package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const docxDocumentPath = "word/document.xml"

// wordTextNode matches <w:t>...</w:t> including nodes carrying attributes
// such as xml:space="preserve".
var wordTextNode = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// extractDOCX pulls the text nodes out of a .docx file. DOCX is a zip
// archive whose body lives in word/document.xml; collecting every <w:t>
// node keeps the text regardless of run and paragraph attributes.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	docXML, err := readZipFile(zr, docxDocumentPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	nodes := wordTextNode.FindAllSubmatch(docXML, -1)
	var b strings.Builder
	for _, node := range nodes {
		text := strings.TrimSpace(string(node[1]))
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}
