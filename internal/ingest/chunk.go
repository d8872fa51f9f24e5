package ingest

import "strings"

// Split breaks text into chunks of at most size characters, preferring line
// boundaries. Consecutive chunks share up to overlap characters of trailing
// lines. Lines longer than size are cut. Blank text yields no chunks.
func Split(text string, size, overlap int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var (
		chunks  []string
		current []string
		length  int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		chunk := strings.Join(current, "\n")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}

		// Carry trailing lines into the next chunk.
		var carried []string
		n := 0
		for i := len(current) - 1; i >= 0; i-- {
			l := len([]rune(current[i])) + 1
			if n+l > overlap {
				break
			}
			carried = append([]string{current[i]}, carried...)
			n += l
		}
		current, length = carried, n
	}

	for _, line := range strings.Split(text, "\n") {
		for _, piece := range cut(line, size) {
			l := len([]rune(piece)) + 1
			if length+l > size+1 && len(current) > 0 {
				flush()
				// Overlap alone can still leave no room.
				if length+l > size+1 {
					current, length = nil, 0
				}
			}
			current = append(current, piece)
			length += l
		}
	}
	if len(current) > 0 {
		chunk := strings.Join(current, "\n")
		if strings.TrimSpace(chunk) != "" && (len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], chunk)) {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func cut(line string, size int) []string {
	r := []rune(line)
	if len(r) <= size {
		return []string{line}
	}
	var out []string
	for len(r) > size {
		out = append(out, string(r[:size]))
		r = r[size:]
	}
	return append(out, string(r))
}
