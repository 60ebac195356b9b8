// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Candidate encoding names, in the order they are tried.
const (
	EncodingUTF8    = "utf-8"
	EncodingGBK     = "gbk"
	EncodingGB2312  = "gb2312"
	EncodingUTF8BOM = "utf-8-sig"
	EncodingLatin1  = "latin-1"
)

// CandidateEncodings lists the encodings tried by ResolveEncoding.
// UTF-8 variants precede the single-byte fallback, which never fails.
var CandidateEncodings = []string{EncodingUTF8, EncodingGBK, EncodingGB2312, EncodingUTF8BOM, EncodingLatin1}

const bom = "\ufeff"

// maxPartialRune is the longest byte tail a read limit may cut from a multi-byte character.
const maxPartialRune = 3

// Resolution is the encoding found for a file.
type Resolution struct {
	Encoding string
	Sample   string // decoded file head with any leading BOM removed
}

// ResolveEncoding reads up to headSize bytes from path and returns the first
// candidate encoding that decodes them strictly.
func ResolveEncoding(path string, headSize int) (*Resolution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, headSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	head = head[:n]
	partial := n == headSize

	for _, name := range CandidateEncodings {
		if sample, ok := decodeHead(name, head, partial); ok {
			return &Resolution{Encoding: name, Sample: strings.TrimPrefix(sample, bom)}, nil
		}
	}
	return nil, fmt.Errorf("%w: tried %s", ErrEncodingUnresolved, strings.Join(CandidateEncodings, ", "))
}

// decodeHead decodes head under the named encoding. When the head was cut
// at the read limit, up to maxPartialRune trailing bytes may be dropped.
func decodeHead(name string, head []byte, partial bool) (string, bool) {
	trims := 0
	if partial {
		trims = maxPartialRune
	}
	for cut := 0; cut <= trims && cut <= len(head); cut++ {
		if text, ok := decodeStrict(name, head[:len(head)-cut]); ok {
			return text, true
		}
	}
	return "", false
}

func decodeStrict(name string, data []byte) (string, bool) {
	switch name {
	case EncodingUTF8:
		if !utf8.Valid(data) {
			return "", false
		}
		return string(data), true
	case EncodingUTF8BOM:
		if !utf8.Valid(data) {
			return "", false
		}
		return string(bytes.TrimPrefix(data, []byte(bom))), true
	case EncodingGB2312:
		if !isEUCCN(data) {
			return "", false
		}
	}

	enc, err := lookupEncoding(name)
	if err != nil {
		return "", false
	}
	text, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil || bytes.ContainsRune(text, utf8.RuneError) {
		return "", false
	}
	return string(text), true
}

// isEUCCN reports whether data only uses GB2312 (EUC-CN) byte ranges.
func isEUCCN(data []byte) bool {
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b < 0x80 {
			continue
		}
		if b < 0xA1 || b > 0xF7 || i+1 >= len(data) {
			return false
		}
		if t := data[i+1]; t < 0xA1 || t > 0xFE {
			return false
		}
		i++
	}
	return true
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch name {
	case EncodingUTF8:
		return unicode.UTF8, nil
	case EncodingUTF8BOM:
		return unicode.UTF8BOM, nil
	case EncodingGBK, EncodingGB2312:
		return simplifiedchinese.GBK, nil
	case EncodingLatin1:
		return charmap.ISO8859_1, nil
	}
	return nil, fmt.Errorf("%w: unknown encoding %q", ErrEncodingUnresolved, name)
}

// Reader decodes src under the resolved encoding. A leading UTF-8 BOM is removed.
func (r *Resolution) Reader(src io.Reader) (io.Reader, error) {
	enc, err := lookupEncoding(r.Encoding)
	if err != nil {
		return nil, err
	}
	var decoder transform.Transformer = enc.NewDecoder()
	if r.Encoding == EncodingUTF8 || r.Encoding == EncodingUTF8BOM {
		decoder = unicode.BOMOverride(decoder)
	}
	return transform.NewReader(src, decoder), nil
}

type decodedFile struct {
	io.Reader
	f *os.File
}

func (d *decodedFile) Close() error {
	return d.f.Close()
}

// OpenDecoded opens path and returns a reader producing UTF-8 text.
func (r *Resolution) OpenDecoded(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	reader, err := r.Reader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &decodedFile{Reader: reader, f: f}, nil
}
