package engine

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// ErrUnsupportedFormat indicates an attachment format with no text extractor.
var ErrUnsupportedFormat = errors.New("unsupported attachment format")

// ooxmlParts lists the archive members holding text, per OOXML and ODF type.
var ooxmlParts = map[string]func(name string) bool{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": func(name string) bool {
		return name == "word/document.xml"
	},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": func(name string) bool {
		return name == "xl/sharedStrings.xml"
	},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": func(name string) bool {
		return strings.HasPrefix(name, "ppt/slides/slide") && path.Ext(name) == ".xml"
	},
	"application/vnd.oasis.opendocument.text":         isODFContent,
	"application/vnd.oasis.opendocument.spreadsheet":  isODFContent,
	"application/vnd.oasis.opendocument.presentation": isODFContent,
}

func isODFContent(name string) bool {
	return name == "content.xml"
}

// ExtractText returns the searchable text of an attachment. An empty MIME
// type is sniffed from the data. Formats without an extractor, such as
// legacy binary Office files, return ErrUnsupportedFormat.
func ExtractText(mimeType string, data []byte) (string, error) {
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	if mime == "" {
		mime, _, _ = strings.Cut(mimetype.Detect(data).String(), ";")
	}

	switch {
	case mime == "text/plain":
		return string(data), nil
	case mime == "text/html":
		return extractHTML(data)
	case mime == "application/pdf":
		return extractPDF(data)
	case mime == "application/rtf" || mime == "text/richtext" || mime == "text/rtf":
		return extractRTF(data), nil
	}

	if match, ok := ooxmlParts[mime]; ok {
		return extractZippedXML(data, match)
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime)
}

func extractHTML(data []byte) (string, error) {
	var sb strings.Builder
	tokenizer := html.NewTokenizer(bytes.NewReader(data))
	skip := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if errors.Is(tokenizer.Err(), io.EOF) {
				return strings.TrimSpace(sb.String()), nil
			}
			return "", tokenizer.Err()
		case html.StartTagToken:
			if name, _ := tokenizer.TagName(); isSkippedTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := tokenizer.TagName(); isSkippedTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
	}
}

func isSkippedTag(name []byte) bool {
	switch string(name) {
	case "script", "style", "head":
		return true
	}
	return false
}

func extractPDF(data []byte) (text string, err error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", errors.New("failed to read pdf: missing %PDF header")
	}
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	return strings.Join(strings.Fields(string(raw)), " "), nil
}

// extractRTF drops control words, control symbols and groups braces.
func extractRTF(data []byte) string {
	var sb strings.Builder
	s := string(data)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '{', '}', '\r', '\n':
			continue
		case '\\':
			if i+1 >= len(s) {
				continue
			}
			next := s[i+1]
			if next == '\\' || next == '{' || next == '}' {
				sb.WriteByte(next)
				i++
				continue
			}
			// Control word: letters, optional numeric parameter, optional space.
			j := i + 1
			for j < len(s) && isASCIILetter(s[j]) {
				j++
			}
			if j == i+1 {
				i++ // control symbol
				continue
			}
			word := s[i+1 : j]
			for j < len(s) && (s[j] == '-' || (s[j] >= '0' && s[j] <= '9')) {
				j++
			}
			if j < len(s) && s[j] == ' ' {
				j++
			}
			if word == "par" || word == "line" || word == "tab" {
				sb.WriteByte(' ')
			}
			i = j - 1
		default:
			sb.WriteByte(c)
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// extractZippedXML concatenates the character data of matching archive members.
func extractZippedXML(data []byte, match func(name string) bool) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}

	files := make([]*zip.File, 0)
	for _, f := range reader.File {
		if match(f.Name) {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var parts []string
	for _, f := range files {
		text, err := xmlText(f)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func xmlText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	var words []string
	decoder := xml.NewDecoder(rc)
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", f.Name, err)
		}
		if data, ok := token.(xml.CharData); ok {
			if text := strings.TrimSpace(string(data)); text != "" {
				words = append(words, text)
			}
		}
	}
	return strings.Join(words, " "), nil
}
