package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// MnemonicLength is the number of words in a recovery phrase.
const MnemonicLength = 12

var mnemonicWords = [...]string{
	"apple", "banana", "cherry", "date", "elderberry", "fig", "grape", "honeydew",
	"kiwi", "lemon", "mango", "nectarine", "orange", "papaya", "quince", "raspberry",
	"strawberry", "tangerine", "ugli", "vanilla", "watermelon", "xigua", "yuzu", "zucchini",
	"able", "baker", "charlie", "delta", "echo", "foxtrot", "golf", "hotel",
	"india", "juliett", "kilo", "lima", "mike", "november", "oscar", "papa",
	"quebec", "romeo", "sierra", "tango", "uniform", "victor", "whiskey", "xray",
	"yankee", "zulu",
}

// GenerateMnemonic draws MnemonicLength words uniformly from the word list.
func GenerateMnemonic() (string, error) {
	words := make([]string, MnemonicLength)
	max := big.NewInt(int64(len(mnemonicWords)))
	for i := range words {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate mnemonic: %w", err)
		}
		words[i] = mnemonicWords[n.Int64()]
	}
	return strings.Join(words, " "), nil
}

// IsMnemonicWord reports whether w belongs to the word list.
func IsMnemonicWord(w string) bool {
	for _, word := range mnemonicWords {
		if word == w {
			return true
		}
	}
	return false
}
