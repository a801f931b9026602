package store

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns an id of the form <prefix>-<unix millis>-<9 base36 chars>.
func NewID(prefix string, now time.Time) string {
	var suffix [9]byte
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), suffix[:])
}

// NextNumber returns one more than the largest number, or 1 when there is
// none. Numbers freed by deletes are never handed out again while a larger
// one exists.
func NextNumber(numbers []int) int {
	next := 1
	for _, n := range numbers {
		if n >= next {
			next = n + 1
		}
	}
	return next
}

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// NextCode returns the code after the highest trailing number among codes,
// formatted as PREFIX-001.
func NextCode(prefix string, codes []string) string {
	highest := 0
	for _, code := range codes {
		m := trailingDigits.FindString(code)
		if m == "" {
			continue
		}
		if n, err := strconv.Atoi(m); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s-%03d", strings.ToUpper(prefix), highest+1)
}
