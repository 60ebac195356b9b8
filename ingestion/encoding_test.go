package ingestion

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func writeBytes(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func gbkBytes(t *testing.T, s string) []byte {
	t.Helper()
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(encoded)
}

func TestResolveEncoding(t *testing.T) {
	dir := t.TempDir()
	const text = "标题,描述\n过热,温度过高\n"

	tests := []struct {
		name       string
		data       []byte
		wantEnc    string
		wantSample string
	}{
		{"utf-8", []byte(text), EncodingUTF8, text},
		{"utf-8 with BOM", append([]byte("\xEF\xBB\xBF"), text...), EncodingUTF8, text},
		{"gbk", gbkBytes(t, text), EncodingGBK, text},
		{"latin-1", []byte("caf\xe9,na\xefve\n"), EncodingLatin1, "café,naïve\n"},
		{"ascii", []byte("title,description\n"), EncodingUTF8, "title,description\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeBytes(t, dir, tt.name+".csv", tt.data)
			res, err := ResolveEncoding(path, 8192)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnc, res.Encoding)
			assert.Equal(t, tt.wantSample, res.Sample)
		})
	}
}

func TestResolveEncoding_SampleSplitsCharacter(t *testing.T) {
	path := writeBytes(t, t.TempDir(), "split.csv", []byte("ab过热"))

	// A 4-byte read ends two bytes into the first ideograph.
	res, err := ResolveEncoding(path, 4)
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, res.Encoding)
	assert.Equal(t, "ab", res.Sample)
}

func TestResolveEncoding_MissingFile(t *testing.T) {
	_, err := ResolveEncoding(filepath.Join(t.TempDir(), "nope.csv"), 8192)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsEUCCN(t *testing.T) {
	assert.True(t, isEUCCN(gbkBytes(t, "温度过高")))
	assert.True(t, isEUCCN([]byte("ascii only")))
	assert.False(t, isEUCCN([]byte{0x81, 0x40}), "GBK extension range")
	assert.False(t, isEUCCN([]byte{0xB1}), "dangling lead byte")
}

func TestResolution_OpenDecoded(t *testing.T) {
	dir := t.TempDir()
	const text = "标题,描述\n过热,温度过高\n"

	tests := []struct {
		name string
		enc  string
		data []byte
	}{
		{"gbk", EncodingGBK, gbkBytes(t, text)},
		{"utf-8 strips BOM", EncodingUTF8, append([]byte("\xEF\xBB\xBF"), text...)},
		{"utf-8-sig", EncodingUTF8BOM, append([]byte("\xEF\xBB\xBF"), text...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeBytes(t, dir, tt.name+".csv", tt.data)
			rc, err := (&Resolution{Encoding: tt.enc}).OpenDecoded(path)
			require.NoError(t, err)
			defer rc.Close()

			decoded, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, text, string(decoded))
		})
	}
}

func TestResolution_UnknownEncoding(t *testing.T) {
	_, err := (&Resolution{Encoding: "ebcdic"}).Reader(nil)
	assert.ErrorIs(t, err, ErrEncodingUnresolved)
}
