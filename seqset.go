package imap

import (
	"fmt"
	"strconv"
	"strings"
)

// ErrBadSeqSet reports a malformed sequence set value.
type ErrBadSeqSet string

func (err ErrBadSeqSet) Error() string {
	return fmt.Sprintf("invalid UID %v", string(err))
}

// Seq is a single seq-number or seq-range value. Zero stands for "*", which
// is safe because seq-number uses the nz-number rule. Start <= Stop always
// holds except for "n:*", stored as Start = n and Stop = 0.
type Seq struct {
	Start, Stop uint32
}

// parseSeqNum parses a single seq-number value (non-zero uint32 or "*").
func parseSeqNum(v string) (uint32, error) {
	if v == "*" {
		return 0, nil
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return 0, ErrBadSeqSet(v)
		}
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n == 0 {
		return 0, ErrBadSeqSet(v)
	}
	return uint32(n), nil
}

// parseSeq parses "n" or "n:m", where n and/or m may be "*". The bounds of a
// range are swapped when given in decreasing order.
func parseSeq(v string) (Seq, error) {
	var (
		s   Seq
		err error
	)
	start, stop, isRange := strings.Cut(v, ":")
	if s.Start, err = parseSeqNum(start); err != nil {
		return s, err
	}
	if !isRange {
		s.Stop = s.Start
		return s, nil
	}
	if s.Stop, err = parseSeqNum(stop); err != nil {
		return s, err
	}
	if (s.Stop < s.Start && s.Stop != 0) || s.Start == 0 {
		s.Start, s.Stop = s.Stop, s.Start
	}
	return s, nil
}

// Contains returns true if the seq-number q is contained in s. "*" is only
// contained in "*" and "n:*".
func (s Seq) Contains(q uint32) bool {
	if q == 0 {
		return s.Stop == 0
	}
	return s.Start != 0 && s.Start <= q && (q <= s.Stop || s.Stop == 0)
}

// Less returns true if s precedes and does not contain seq-number q.
func (s Seq) Less(q uint32) bool {
	return (s.Stop < q || q == 0) && s.Stop != 0
}

// Bounds returns the inclusive bounds of s once "*" is replaced by max. The
// lower bound always comes first.
func (s Seq) Bounds(max uint32) (lo, hi uint32) {
	lo, hi = s.Start, s.Stop
	if lo == 0 {
		lo = max
	}
	if hi == 0 {
		hi = max
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// Merge combines s and t into a single union if they intersect, touch, or
// one contains the other. ok is false if they cannot be merged.
func (s Seq) Merge(t Seq) (union Seq, ok bool) {
	union = s
	if s == t {
		return s, true
	}
	if s.Start != 0 && t.Start != 0 {
		if s.Start > t.Start {
			s, t = t, s
		}
		if (s.Stop >= t.Stop && t.Stop != 0) || s.Stop == 0 {
			return s, true // s is a superset of t
		}
		if s.Stop+1 >= t.Start || s.Stop == ^uint32(0) {
			return Seq{s.Start, t.Stop}, true
		}
		return union, false
	}
	// exactly one of s and t is "*"
	if s.Start == 0 {
		if t.Stop == 0 {
			return t, true
		}
	} else if s.Stop == 0 {
		return s, true
	}
	return union, false
}

// String returns s as a seq-number or seq-range string.
func (s Seq) String() string {
	if s.Start == s.Stop {
		if s.Start == 0 {
			return "*"
		}
		return strconv.FormatUint(uint64(s.Start), 10)
	}
	b := strconv.AppendUint(make([]byte, 0, 24), uint64(s.Start), 10)
	if s.Stop == 0 {
		return string(append(b, ':', '*'))
	}
	return string(strconv.AppendUint(append(b, ':'), uint64(s.Stop), 10))
}

// SeqSet is a set of message sequence numbers or UIDs (see the sequence-set
// ABNF rule). It is kept sorted with overlapping values merged, so String
// always returns the minimal covering form. The zero value is an empty set.
type SeqSet []Seq

// ParseSeqSet parses a comma-separated sequence set.
func ParseSeqSet(set string) (SeqSet, error) {
	var s SeqSet
	for _, sv := range strings.Split(set, ",") {
		v, err := parseSeq(sv)
		if err != nil {
			return nil, err
		}
		s.insert(v)
	}
	return s, nil
}

// SeqSetNum returns a new SeqSet containing the numbers.
func SeqSetNum(q ...uint32) SeqSet {
	var s SeqSet
	s.AddNum(q...)
	return s
}

// AddNum inserts sequence numbers into the set. The value 0 represents "*".
func (s *SeqSet) AddNum(q ...uint32) {
	for _, v := range q {
		s.insert(Seq{v, v})
	}
}

// AddRange inserts a sequence range into the set.
func (s *SeqSet) AddRange(start, stop uint32) {
	if (stop < start && stop != 0) || start == 0 {
		s.insert(Seq{stop, start})
	} else {
		s.insert(Seq{start, stop})
	}
}

// Dynamic returns true if the set contains "*" or "n:*" values.
func (s SeqSet) Dynamic() bool {
	return len(s) > 0 && s[len(s)-1].Stop == 0
}

// Contains returns true if the non-zero number q is in the set. It does not
// know what "*" stands for, use Match for that.
func (s SeqSet) Contains(q uint32) bool {
	if _, ok := s.search(q); ok {
		return q != 0
	}
	return false
}

// Match returns true if q is in the set once "*" is replaced by max, the
// highest UID or the number of messages.
func (s SeqSet) Match(q, max uint32) bool {
	if q == 0 {
		return false
	}
	for _, v := range s {
		if lo, hi := v.Bounds(max); lo <= q && q <= hi {
			return true
		}
	}
	return false
}

// Nums returns the numbers of the set between 1 and max, sorted and without
// duplicates, with "*" replaced by max.
func (s SeqSet) Nums(max uint32) []uint32 {
	var resolved SeqSet
	for _, v := range s {
		lo, hi := v.Bounds(max)
		if hi > max {
			hi = max
		}
		if hi == 0 || lo > hi {
			continue
		}
		if lo == 0 {
			lo = 1
		}
		resolved.AddRange(lo, hi)
	}
	var nums []uint32
	for _, v := range resolved {
		for n := v.Start; ; n++ {
			nums = append(nums, n)
			if n == v.Stop {
				break
			}
		}
	}
	return nums
}

// String returns the minimal comma-separated representation of the set.
func (s SeqSet) String() string {
	if len(s) == 0 {
		return ""
	}
	l := make([]string, len(s))
	for i, v := range s {
		l[i] = v.String()
	}
	return strings.Join(l, ",")
}

// insert adds sequence value v to the set.
func (ptr *SeqSet) insert(v Seq) {
	s := *ptr
	defer func() {
		*ptr = s
	}()

	i, _ := s.search(v.Start)
	merged := false
	if i > 0 {
		// try merging with the preceding entry (e.g. "1,4".insert(2), i == 1)
		s[i-1], merged = s[i-1].Merge(v)
	}
	if i == len(s) {
		if !merged {
			s = append(s, v)
		}
		return
	} else if merged {
		i--
	} else if s[i], merged = s[i].Merge(v); !merged {
		s = append(s, Seq{})
		copy(s[i+1:], s[i:])
		s[i] = v
		return
	}
	// v was merged with s[i], keep merging with the following entries
	for j := i + 1; j < len(s); j++ {
		if s[i], merged = s[i].Merge(s[j]); !merged {
			if j > i+1 {
				s = append(s[:i+1], s[j:]...)
			}
			return
		}
	}
	s = s[:i+1]
}

// search returns the index of the value containing q. If no value contains
// q, the returned index is the insertion position and ok is false.
func (s SeqSet) search(q uint32) (i int, ok bool) {
	min, max := 0, len(s)-1
	for min < max {
		if mid := (min + max) >> 1; s[mid].Less(q) {
			min = mid + 1
		} else {
			max = mid
		}
	}
	if max < 0 || s[min].Less(q) {
		return len(s), false
	}
	return min, s[min].Contains(q)
}
