package slip

// Encode frames p: every END and ESC in p is escaped and a single END
// terminator is appended. The result is allocated at the worst case
// (2*len(p)+1) and sliced down to the bytes actually emitted.
func Encode(p []byte) []byte {
	out := make([]byte, 0, 2*len(p)+1)
	for _, b := range p {
		switch b {
		case End:
			out = append(out, Esc, EscEnd)
		case Esc:
			out = append(out, Esc, EscEsc)
		default:
			out = append(out, b)
		}
	}
	return append(out, End)
}
