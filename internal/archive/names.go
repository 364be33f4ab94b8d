package archive

import "fmt"

// Names returns n sequential file names: base00ext, base01ext, and so on.
// The index is zero padded to two digits and grows past that if needed.
func Names(n int, base, ext string) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s%02d%s", base, i, ext)
	}
	return names
}
