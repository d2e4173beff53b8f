package ports

// EntropyPort supplies cryptographically secure random bytes. The engine
// treats a fill failure as fatal for that trial attempt.
type EntropyPort interface {
	// Fill writes len(buf) random bytes into buf
	Fill(buf []byte) error
}
