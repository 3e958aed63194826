package bot

// Message sizing against the transport's 2000-char message limit.
const (
	statusOutputLimit  = 1200 // initial status view, leaves room for the header
	followupChunkSize  = 1900
	submitOutputLimit  = 1500
	approveOutputLimit = 1800
)

// chunkSet is one output split for delivery: the slice embedded in the
// primary message plus ordered follow-up slices.
type chunkSet struct {
	First     string
	Followups []string
	Total     int
}

// splitOutput slices text so the primary message carries at most initial
// bytes and each follow-up at most chunkSize bytes. Concatenating First
// with all Followups reproduces text exactly.
func splitOutput(text string, initial, chunkSize int) chunkSet {
	if len(text) <= initial {
		return chunkSet{First: text, Total: 1}
	}
	remaining := len(text) - initial
	followups := (remaining + chunkSize - 1) / chunkSize
	set := chunkSet{First: text[:initial], Total: 1 + followups}
	rest := text[initial:]
	for len(rest) > 0 {
		n := chunkSize
		if n > len(rest) {
			n = len(rest)
		}
		set.Followups = append(set.Followups, rest[:n])
		rest = rest[n:]
	}
	return set
}

// truncate cuts text at limit bytes and reports whether anything was cut.
func truncate(text string, limit int) (string, bool) {
	if len(text) <= limit {
		return text, false
	}
	return text[:limit], true
}
