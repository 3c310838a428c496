// Package businesskey generates the human-facing business keys used by
// row-creation paths: appointment codes and invoice numbers.
//
// Generation is not access-controlled; keys are computed before the insert
// that policy evaluation gates. Neither generator guarantees uniqueness by
// itself - the relation's uniqueness constraint does, and a collision
// surfaces to the caller as rowguard.ErrConstraintViolation. The Allocator
// and RetryOnConflict helpers implement the two documented ways of dealing
// with the resulting read-modify-write race.
package businesskey

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rowguard/rowguard"
)

// NextAppointmentCode returns a code of the form APT-YYYYMMDD-NNNN.
//
// The 4-digit suffix is drawn independently per call and is NOT unique;
// two calls on the same day can collide. Callers must treat a
// rowguard.ErrConstraintViolation on insert as "draw again", not as a
// failure. A nil rng uses the shared math/rand source.
func NextAppointmentCode(today time.Time, rng *rand.Rand) string {
	n := 0
	if rng != nil {
		n = rng.Intn(10000)
	} else {
		n = rand.Intn(10000)
	}
	return fmt.Sprintf("APT-%s-%04d", today.Format("20060102"), n)
}

// NextInvoiceNumber returns a number of the form YYYY-NNNNNN where NNNNNN
// is one greater than the highest existing suffix for today's year.
// Numbers from other years in existing are ignored.
//
// The computation is a read-modify-write: two concurrent callers given the
// same existing set produce the same next number. Serialize per year via
// Allocator.SerializeYear, or insert optimistically and retry on
// rowguard.ErrConstraintViolation.
func NextInvoiceNumber(today time.Time, existing []string) string {
	year := today.Year()
	max := 0
	for _, number := range existing {
		if suffix, ok := invoiceSuffix(number, year); ok && suffix > max {
			max = suffix
		}
	}
	return FormatInvoiceNumber(year, max+1)
}

// FormatInvoiceNumber renders a year and sequence as YYYY-NNNNNN.
func FormatInvoiceNumber(year, sequence int) string {
	return fmt.Sprintf("%d-%06d", year, sequence)
}

// invoiceSuffix parses the numeric suffix of an invoice number, accepting
// only numbers belonging to the given year.
func invoiceSuffix(number string, year int) (int, bool) {
	prefix := strconv.Itoa(year) + "-"
	rest, ok := strings.CutPrefix(number, prefix)
	if !ok {
		return 0, false
	}
	suffix, err := strconv.Atoi(rest)
	if err != nil || suffix < 0 {
		return 0, false
	}
	return suffix, true
}

// Allocator serializes invoice-number generation per year. Callers that
// prefer pessimistic allocation wrap the read-compute-insert sequence in
// SerializeYear; callers that prefer optimism skip the Allocator and use
// RetryOnConflict instead.
type Allocator struct {
	mu    sync.Mutex
	years map[int]*sync.Mutex
}

// NewAllocator returns an allocator with no held years.
func NewAllocator() *Allocator {
	return &Allocator{years: make(map[int]*sync.Mutex)}
}

// SerializeYear runs fn while holding the exclusive section for the year.
// Allocations for different years proceed independently.
func (a *Allocator) SerializeYear(year int, fn func() error) error {
	a.mu.Lock()
	m, ok := a.years[year]
	if !ok {
		m = &sync.Mutex{}
		a.years[year] = m
	}
	a.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn()
}

// RetryOnConflict runs fn up to attempts times, retrying while it returns
// a rowguard.ErrConstraintViolation. Any other error, and the final
// constraint violation once attempts are exhausted, is returned to the
// caller unchanged. fn must regenerate its key on every attempt.
func RetryOnConflict(attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !rowguard.IsConstraintViolation(err) {
			return err
		}
	}
	return err
}
