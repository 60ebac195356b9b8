package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   rune
	}{
		{
			name:   "comma",
			sample: "title,description,equipment_type,phase\n电机过热,电机温度过高,机械设备,usage\n软件响应慢,系统响应时间长,软件系统,development",
			want:   ',',
		},
		{
			name:   "semicolon",
			sample: "title;description;equipment_type;phase\n电机过热;电机温度过高;机械设备;usage\n软件响应慢;系统响应时间长;软件系统;development",
			want:   ';',
		},
		{
			name:   "tab",
			sample: "title\t\tdescription\t\tequipment_type\t\tphase\n电机过热\t\t电机温度过高\t\t机械设备\t\tusage",
			want:   '\t',
		},
		{
			name:   "pipe",
			sample: "title|description|equipment_type|phase\n电机过热|电机温度过高|机械设备|usage",
			want:   '|',
		},
		{
			name: "full-width commas in text",
			sample: "title,description,equipment_type,phase,discovered_by,discovered_at\n" +
				"电机过热问题,电机运行时温度过高，可能导致设备停机,机械设备,usage,张三,2024/1/15\n" +
				"连接器接触不良,设备连接器经常出现接触问题，导致信号中断,电子设备,usage,王五,2024/3/10",
			want: ',',
		},
		{
			name:   "single header line",
			sample: "title,description,equipment_type,phase",
			want:   ',',
		},
		{
			name:   "quoted fields containing commas",
			sample: "title;description\n\"Pump, main\";\"Leaks, badly, often\"\n\"Fan\";\"Noisy, at night\"",
			want:   ';',
		},
		{
			name:   "windows line endings",
			sample: "title|description\r\nPump|Leak\r\nFan|Noise\r\n",
			want:   '|',
		},
		{
			name:   "inconsistent separators",
			sample: "title,description,equipment_type\n电机过热;电机温度过高,机械设备\n软件响应慢,系统响应时间长;软件系统",
			want:   ',',
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Detect(tt.sample)
			assert.True(t, ok)
			assert.Equal(t, string(tt.want), string(got))
		})
	}
}

func TestDetect_PipeOverCommasInText(t *testing.T) {
	sample := "title|description\nrow1,has,many,commas|val\nrow2,also,many|val2"

	got, ok := Detect(sample)
	assert.True(t, ok)
	assert.Equal(t, "|", string(got))

	// The field-count vote reaches the same answer on its own.
	voted, ok := vote(sample)
	assert.True(t, ok)
	assert.Equal(t, "|", string(voted))
}

func TestDetect_Empty(t *testing.T) {
	_, ok := Detect("")
	assert.False(t, ok)
	_, ok = Detect(" \n\n ")
	assert.False(t, ok)
	assert.Equal(t, ',', DetectOrDefault(""))
}

func TestDetect_Idempotent(t *testing.T) {
	samples := []string{
		"a,b,c\n1,2,3",
		"a;b\n1;2\n3;4",
		"x|y\nfoo,bar|baz",
		"just some words here\nand more words there",
		"a:b:c\n1:2:3",
		strings.Repeat("a,b,c\n", 500),
	}
	for _, s := range samples {
		first := DetectOrDefault(s)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, DetectOrDefault(s), "sample %q", s)
		}
	}
}

func TestVote_DiscardsNoisyCandidates(t *testing.T) {
	line := strings.Repeat("x,", 30) + "|tail"
	got, ok := vote(line + "\n" + line)
	assert.True(t, ok)
	assert.Equal(t, "|", string(got))
}

func TestVote_PrefersConsistencyOverFieldCount(t *testing.T) {
	// ';' gives 3 fields on all but one line; '|' gives 6 fields on all but
	// two. Both are consistent, ';' more so, and that outweighs the field count.
	var lines []string
	for i := range 20 {
		semis, pipes := 2, 5
		if i == 19 {
			semis = 3
		}
		if i >= 18 {
			pipes = 6
		}
		lines = append(lines, "a"+strings.Repeat(";b", semis)+strings.Repeat("|c", pipes))
	}
	got, ok := vote(strings.Join(lines, "\n"))
	assert.True(t, ok)
	assert.Equal(t, ";", string(got))
}

func TestClipSample(t *testing.T) {
	long := strings.Repeat("abc,def\n", 400)
	clipped := clipSample(long)
	assert.LessOrEqual(t, len([]rune(clipped)), MaxSampleChars)
	for _, line := range strings.Split(clipped, "\n") {
		assert.Equal(t, "abc,def", line)
	}

	assert.Equal(t, "short", clipSample("short"))
}
