package fs

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

const (
	textDetectionSampleSize      = 4096
	nonPrintableThresholdPercent = 30
)

// ErrNotText is returned for content that does not look like a text document.
var ErrNotText = errors.New("not a text document")

// Encoding identifies how a document was stored so it can be written back
// the same way.
type Encoding int

const (
	EncodingUTF8 Encoding = iota
	EncodingUTF8BOM
	EncodingUTF16LE
	EncodingUTF16BE
)

func (e Encoding) String() string {
	switch e {
	case EncodingUTF8BOM:
		return "utf-8-bom"
	case EncodingUTF16LE:
		return "utf-16le"
	case EncodingUTF16BE:
		return "utf-16be"
	default:
		return "utf-8"
	}
}

var binaryExtensions = map[string]struct{}{
	".7z":   {},
	".bin":  {},
	".bmp":  {},
	".docx": {},
	".exe":  {},
	".gif":  {},
	".gz":   {},
	".jpeg": {},
	".jpg":  {},
	".mp3":  {},
	".mp4":  {},
	".pdf":  {},
	".png":  {},
	".webp": {},
	".zip":  {},
}

// IsTextFile determines if content is text or binary.
// The path (if provided) is used to short-circuit obvious binary extensions before sniffing.
func IsTextFile(path string, content []byte) bool {
	if looksBinaryByExtension(path) {
		return false
	}

	if len(content) == 0 {
		return true
	}

	sample := content
	if len(sample) > textDetectionSampleSize {
		sample = sample[:textDetectionSampleSize]
	}

	if enc := detectEncoding(sample); enc != EncodingUTF8 {
		return true
	}

	if bytes.IndexByte(sample, 0x00) != -1 {
		return false
	}

	if utf8.Valid(sample) {
		return true
	}

	nonPrintable := 0
	for _, b := range sample {
		if !isCommonTextByte(b) {
			nonPrintable++
		}
	}
	return nonPrintable*100/len(sample) < nonPrintableThresholdPercent
}

// DecodeDocument turns stored bytes into document text, reporting the
// encoding it found. Binary content is rejected with ErrNotText.
func DecodeDocument(path string, content []byte) (string, Encoding, error) {
	if !IsTextFile(path, content) {
		return "", EncodingUTF8, ErrNotText
	}
	enc := detectEncoding(content)
	switch enc {
	case EncodingUTF8BOM:
		return string(content[3:]), enc, nil
	case EncodingUTF16LE, EncodingUTF16BE:
		text, err := utf16Codec(enc).NewDecoder().Bytes(content)
		if err != nil {
			return "", enc, err
		}
		return string(text), enc, nil
	default:
		return string(content), enc, nil
	}
}

// EncodeDocument is the inverse of DecodeDocument.
func EncodeDocument(text string, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingUTF8BOM:
		out := make([]byte, 0, len(text)+3)
		out = append(out, 0xEF, 0xBB, 0xBF)
		return append(out, text...), nil
	case EncodingUTF16LE, EncodingUTF16BE:
		return utf16Codec(enc).NewEncoder().Bytes([]byte(text))
	default:
		return []byte(text), nil
	}
}

// NormalizeTextContent converts known Unicode BOM-encoded content into UTF-8 strings.
func NormalizeTextContent(content []byte) string {
	text, _, err := DecodeDocument("", content)
	if err != nil {
		return string(content)
	}
	return text
}

func utf16Codec(enc Encoding) encoding.Encoding {
	if enc == EncodingUTF16BE {
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	}
	return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
}

func looksBinaryByExtension(path string) bool {
	if path == "" {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := binaryExtensions[ext]
	return ok
}

func isCommonTextByte(b byte) bool {
	switch {
	case b == 0x09 || b == 0x0A || b == 0x0D:
		return true
	case b >= 0x20 && b <= 0x7E:
		return true
	case b >= 0x80:
		return true
	default:
		return false
	}
}

func detectEncoding(sample []byte) Encoding {
	if len(sample) >= 3 && sample[0] == 0xEF && sample[1] == 0xBB && sample[2] == 0xBF {
		return EncodingUTF8BOM
	}
	if len(sample) >= 2 {
		switch {
		case sample[0] == 0xFF && sample[1] == 0xFE:
			return EncodingUTF16LE
		case sample[0] == 0xFE && sample[1] == 0xFF:
			return EncodingUTF16BE
		}
	}
	return EncodingUTF8
}
