package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// textEncoding is one entry of the decode fallback list.
type textEncoding struct {
	name string
	enc  encoding.Encoding // nil means strict UTF-8
}

// textEncodings is tried in order; the first clean decode wins.
var textEncodings = []textEncoding{
	{name: "utf-8"},
	{name: "gbk", enc: simplifiedchinese.GBK},
	{name: "gb18030", enc: simplifiedchinese.GB18030},
	{name: "latin1", enc: charmap.ISO8859_1},
}

// decodeText converts raw bytes to UTF-8 text, returning the encoding that succeeded.
func decodeText(data []byte) (string, string, error) {
	var errs []string
	for _, te := range textEncodings {
		text, err := decodeWith(te, data)
		if err == nil {
			return text, te.name, nil
		}
		errs = append(errs, te.name+": "+err.Error())
	}
	return "", "", fmt.Errorf("no encoding matched: %s", strings.Join(errs, "; "))
}

func decodeWith(te textEncoding, data []byte) (string, error) {
	if te.enc == nil {
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return "", errors.New("invalid utf-8 sequence")
		}
		return string(data), nil
	}
	out, err := te.enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	// x/text decoders substitute U+FFFD instead of failing on bad input
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.Contains(data, []byte("\xef\xbf\xbd")) {
		return "", errors.New("undecodable byte sequence")
	}
	return string(out), nil
}
