package ingestion

import (
	"math"
	"strings"
)

// Delimiters are the field separators the detector chooses between, in tie-break order.
var Delimiters = []rune{',', ';', '\t', '|', ':', ' '}

// DefaultDelimiter is used when detection is undecidable.
const DefaultDelimiter = ','

const (
	// MaxSampleChars bounds the text examined by Detect.
	MaxSampleChars = 2048

	maxVoteLines    = 20
	maxPerLineNoise = 20.0
	sniffChunkLines = 10
)

// sniffPreference breaks ties between equally consistent delimiters.
var sniffPreference = []rune{',', '\t', ';', ' ', ':'}

// Detect infers the field separator of a text sample. It first runs a sniffer
// (quote adjacency, then per-line frequency modes); if that is inconclusive
// it scores each candidate by how consistent the implied field count is
// across lines. It returns false only when nothing could be scored.
func Detect(sample string) (rune, bool) {
	sample = clipSample(sample)
	if strings.TrimSpace(sample) == "" {
		return 0, false
	}
	if d, ok := sniff(sample); ok {
		return d, true
	}
	return vote(sample)
}

// DetectOrDefault is Detect with the comma fallback applied.
func DetectOrDefault(sample string) rune {
	if d, ok := Detect(sample); ok {
		return d
	}
	return DefaultDelimiter
}

// clipSample keeps the first MaxSampleChars characters, dropping a trailing
// partial line when the cut falls mid-line.
func clipSample(sample string) string {
	runes := []rune(sample)
	if len(runes) <= MaxSampleChars {
		return sample
	}
	clipped := string(runes[:MaxSampleChars])
	if i := strings.LastIndexAny(clipped, "\r\n"); i > 0 {
		clipped = clipped[:i]
	}
	return clipped
}

func isCandidate(r rune) bool {
	for _, d := range Delimiters {
		if d == r {
			return true
		}
	}
	return false
}

// sniffLines splits on any line ending and drops empty lines.
func sniffLines(sample string) []string {
	normalized := strings.ReplaceAll(sample, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	var lines []string
	for _, line := range strings.Split(normalized, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func sniff(sample string) (rune, bool) {
	lines := sniffLines(sample)
	if len(lines) == 0 {
		return 0, false
	}
	if d, ok := sniffQuoted(lines); ok {
		return d, true
	}
	return sniffFrequency(lines)
}

// sniffQuoted votes for the characters found directly around quoted fields.
// Quotes enclosed on both sides by the same delimiter are the strongest
// signal, then quotes opening a line, then quotes closing a line.
func sniffQuoted(lines []string) (rune, bool) {
	var enclosed, leading, trailing []rune
	for _, line := range lines {
		runes := []rune(line)
		for i := 0; i < len(runes); i++ {
			if runes[i] != '"' {
				continue
			}
			end := closingQuote(runes, i)
			if end < 0 {
				break
			}
			before, hasBefore := delimiterBefore(runes, i)
			var after rune
			hasAfter := end+1 < len(runes)
			if hasAfter {
				after = runes[end+1]
			}
			switch {
			case hasBefore && hasAfter && before == after && isCandidate(before):
				enclosed = append(enclosed, before)
			case i == 0 && hasAfter && isCandidate(after):
				leading = append(leading, after)
			case !hasAfter && hasBefore && isCandidate(before):
				trailing = append(trailing, before)
			}
			i = end
		}
	}
	for _, votes := range [][]rune{enclosed, leading, trailing} {
		if len(votes) > 0 {
			return mostVoted(votes), true
		}
	}
	return 0, false
}

// closingQuote finds the quote ending the field opened at start, skipping
// doubled quotes. Returns -1 when the field is unterminated.
func closingQuote(runes []rune, start int) int {
	for j := start + 1; j < len(runes); j++ {
		if runes[j] != '"' {
			continue
		}
		if j+1 < len(runes) && runes[j+1] == '"' {
			j++
			continue
		}
		return j
	}
	return -1
}

// delimiterBefore returns the character preceding an opening quote,
// looking past one space.
func delimiterBefore(runes []rune, quote int) (rune, bool) {
	if quote == 0 {
		return 0, false
	}
	prev := runes[quote-1]
	if prev == ' ' && quote >= 2 && runes[quote-2] != ' ' && isCandidate(runes[quote-2]) {
		return runes[quote-2], true
	}
	return prev, true
}

func mostVoted(votes []rune) rune {
	counts := make(map[rune]int)
	for _, v := range votes {
		counts[v]++
	}
	best, bestCount := rune(0), 0
	for _, d := range Delimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

type frequencyMode struct {
	freq  int // occurrences per line
	count int // lines with that frequency, less lines without it
}

// sniffFrequency looks for a delimiter occurring the same number of times on
// nearly every line, examining the sample ten lines at a time.
func sniffFrequency(lines []string) (rune, bool) {
	tables := make(map[rune]map[int]int, len(Delimiters))
	for _, d := range Delimiters {
		tables[d] = make(map[int]int)
	}

	var found map[rune]frequencyMode
	for start := 0; start < len(lines); start += sniffChunkLines {
		end := min(start+sniffChunkLines, len(lines))
		for _, line := range lines[start:end] {
			for _, d := range Delimiters {
				tables[d][strings.Count(line, string(d))]++
			}
		}
		total := float64(end)

		modes := make(map[rune]frequencyMode)
		for _, d := range Delimiters {
			if m, ok := modeOf(tables[d]); ok {
				modes[d] = m
			}
		}

		found = make(map[rune]frequencyMode)
		for consistency := 1.0; len(found) == 0 && consistency >= 0.9; consistency -= 0.01 {
			for d, m := range modes {
				if m.freq > 0 && m.count > 0 && float64(m.count)/total >= consistency {
					found[d] = m
				}
			}
		}
		if len(found) == 1 {
			for d := range found {
				return d, true
			}
		}
	}

	if len(found) == 0 {
		return 0, false
	}
	for _, d := range sniffPreference {
		if _, ok := found[d]; ok {
			return d, true
		}
	}
	var best rune
	var bestMode frequencyMode
	for _, d := range Delimiters {
		m, ok := found[d]
		if !ok {
			continue
		}
		if best == 0 || m.freq > bestMode.freq || (m.freq == bestMode.freq && m.count > bestMode.count) {
			best, bestMode = d, m
		}
	}
	return best, true
}

// modeOf returns the most common per-line frequency, with its line count
// reduced by the lines that had any other frequency. A character that never
// occurs has no mode.
func modeOf(table map[int]int) (frequencyMode, bool) {
	if len(table) == 0 {
		return frequencyMode{}, false
	}
	if len(table) == 1 {
		for freq, count := range table {
			if freq == 0 {
				return frequencyMode{}, false
			}
			return frequencyMode{freq: freq, count: count}, true
		}
	}
	var mode frequencyMode
	first := true
	rest := 0
	for freq, count := range table {
		rest += count
		if first || count > mode.count || (count == mode.count && freq < mode.freq) {
			mode = frequencyMode{freq: freq, count: count}
			first = false
		}
	}
	rest -= mode.count
	mode.count -= rest
	return mode, true
}

// voteLines splits the sample on "\n", "\r" or "\r\n", whichever yields at
// least two non-empty lines, and keeps the first maxVoteLines of them.
func voteLines(sample string) []string {
	var fallback []string
	for _, sep := range []string{"\n", "\r", "\r\n"} {
		var lines []string
		for _, line := range strings.Split(sample, sep) {
			line = strings.TrimRight(line, "\r\n")
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) >= 2 {
			return lines[:min(len(lines), maxVoteLines)]
		}
		if fallback == nil {
			fallback = lines
		}
	}
	return fallback
}

// vote scores every candidate by field-count consistency and returns the best.
func vote(sample string) (rune, bool) {
	lines := voteLines(sample)
	if len(lines) == 0 {
		return 0, false
	}

	var best rune
	bestScore := math.Inf(-1)
	for _, d := range Delimiters {
		fields := make([]float64, len(lines))
		var occurrences float64
		for i, line := range lines {
			n := strings.Count(line, string(d))
			occurrences += float64(n)
			fields[i] = float64(n + 1)
		}
		if occurrences/float64(len(lines)) > maxPerLineNoise {
			continue
		}

		mean, stddev := meanStdDev(fields)
		var consistency float64
		switch {
		case stddev == 0 && mean > 1:
			consistency = 100
		case stddev == 0:
			consistency = 1
		default:
			consistency = math.Max(0.1, 10/(stddev+0.1)) * 10
		}

		score := 0.7*consistency + 0.3*math.Min(10, mean)
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	if math.IsInf(bestScore, -1) {
		return 0, false
	}
	return best, true
}

func meanStdDev(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
