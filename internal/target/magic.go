package target

// Magic numbers identify the artifact flavor in the file header (§6.1).
const (
	MagicExe uint32 = 0x4f424545 // "OBEE"
	MagicLib uint32 = 0x4f424c4c // "OBLL"
	MagicWeb uint32 = 0x4f425757 // "OBWW"
)

// FormatVersion is written as the first header field (§6.1).
const FormatVersion uint32 = 1
