package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strconv"
	"time"
)

func RandomString(length int) string {
	bytes := make([]byte, length)
	_, err := rand.Read(bytes)
	if err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}

// RandomIntInRange returns a uniformly distributed integer in [min, max].
func RandomIntInRange(min, max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return 0, err
	}
	return min + n.Int64(), nil
}

// NewCorrelationID is short enough to read over the phone: base36 unix
// seconds followed by six random hex characters.
func NewCorrelationID() string {
	return strconv.FormatInt(time.Now().Unix(), 36) + "-" + RandomString(6)
}
