// Package dt implements the Domain-Tag identifier system: 64-bit tagged
// names with four bijective encodings (Word, Acronym, Reference, Numeric)
// and the DT pair (domain, tag) used to name every record in the engine.
package dt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors for identifier encoding failures.
var (
	ErrInvalidName     = errors.New("dt: invalid name")
	ErrAutoIDOverflow  = errors.New("dt: autoid counter overflow")
	ErrNameTooLong     = errors.New("dt: name exceeds encoding length limit")
	ErrNameNotEncoded  = errors.New("dt: id does not carry the requested encoding")
	ErrCharOutOfRange  = errors.New("dt: character outside encoding alphabet")
	ErrWordNeedsLetter = errors.New("dt: word encoding requires at least one lowercase letter")
)

// ID is a 56-bit encoded name plus a 2-bit coding selector (bits 57-56),
// packed into the low 58 bits of a uint64 (the top 6 bits are reserved system bits owned by
// the caller, e.g. to flag domain/tag roles, and are always zero here).
type ID uint64

// Coding distinguishes the four ID encodings.
type Coding uint8

const (
	CodingWord Coding = iota
	CodingAcronym
	CodingReference
	CodingNumeric
)

const (
	// nameBits is the width of the coding selector plus the encoded-name
	// payload within an ID.
	nameBits = 58

	// codingShift places the 2-bit coding selector above the autoid-sized
	// payload, matching the original's bit layout (coding bits 57-56).
	codingShift = autoIDBits

	// autoIDBits is the width of the Numeric/Reference payload.
	autoIDBits = 56

	// wordBitsPerChar is 5 bits per Word character (32-symbol alphabet).
	wordBitsPerChar = 5
	// wordMaxChars bounds the Word encoding length.
	wordMaxChars = 11

	// acronymBitsPerChar is 6 bits per Acronym character (64-symbol alphabet).
	acronymBitsPerChar = 6
	// acronymMaxChars bounds the Acronym encoding length.
	acronymMaxChars = 9

	// AutoID is the sentinel Numeric value requesting autoid assignment.
	AutoID ID = (1 << autoIDBits) - 1

	// autoIDMax is the largest value the autoid counter may reach before
	// NextAutoID reports overflow.
	autoIDMax = (1 << autoIDBits) - 2
)

// wordAlphabet maps a 5-bit code to its character; index 0 is space.
var wordAlphabet = [32]byte{
	0: ' ',
	1: 'a', 2: 'b', 3: 'c', 4: 'd', 5: 'e', 6: 'f', 7: 'g', 8: 'h', 9: 'i',
	10: 'j', 11: 'k', 12: 'l', 13: 'm', 14: 'n', 15: 'o', 16: 'p', 17: 'q',
	18: 'r', 19: 's', 20: 't', 21: 'u', 22: 'v', 23: 'w', 24: 'x', 25: 'y', 26: 'z',
	27: ':', 28: '_', 29: '-', 30: '.', 31: '/',
}

var wordIndex = buildWordIndex()

func buildWordIndex() map[byte]uint64 {
	idx := make(map[byte]uint64, len(wordAlphabet))
	for code, ch := range wordAlphabet {
		idx[ch] = uint64(code)
	}

	return idx
}

// EncodeWord encodes text using the 5-bit Word alphabet: space, a-z, and
// `: _ - . /`. The text must be at most 11 characters and contain at least
// one lowercase letter (a purely symbolic string is rejected).
func EncodeWord(text string) (ID, error) {
	if len(text) > wordMaxChars {
		return 0, fmt.Errorf("%w: word %q longer than %d chars", ErrNameTooLong, text, wordMaxChars)
	}

	var code uint64

	hasLetter := false

	for i := 0; i < wordMaxChars; i++ {
		var ch byte = ' '
		if i < len(text) {
			ch = text[i]
		}

		bits, ok := wordIndex[ch]
		if !ok {
			return 0, fmt.Errorf("%w: %q in word %q", ErrCharOutOfRange, string(ch), text)
		}

		if bits >= 1 && bits <= 26 {
			hasLetter = true
		}

		code = (code << wordBitsPerChar) | bits
	}

	if !hasLetter {
		return 0, fmt.Errorf("%w: %q", ErrWordNeedsLetter, text)
	}

	return packID(CodingWord, code), nil
}

// DecodeWord returns the trimmed text encoded by id.
func DecodeWord(id ID) (string, error) {
	coding, payload := unpackID(id)
	if coding != CodingWord {
		return "", fmt.Errorf("%w: not a word id", ErrNameNotEncoded)
	}

	var buf [wordMaxChars]byte

	for i := wordMaxChars - 1; i >= 0; i-- {
		buf[i] = wordAlphabet[payload&0x1F]
		payload >>= wordBitsPerChar
	}

	return strings.TrimRight(string(buf[:]), " "), nil
}

// EncodeAcronym encodes text using the 6-bit Acronym alphabet: ASCII
// 0x20-0x5F. Leading/trailing spaces are trimmed before length validation;
// the trimmed text must be at most 9 characters.
func EncodeAcronym(text string) (ID, error) {
	trimmed := strings.Trim(text, " ")
	if len(trimmed) > acronymMaxChars {
		return 0, fmt.Errorf("%w: acronym %q longer than %d chars after trimming", ErrNameTooLong, text, acronymMaxChars)
	}

	var code uint64

	for i := 0; i < acronymMaxChars; i++ {
		var ch byte = ' '
		if i < len(trimmed) {
			ch = trimmed[i]
		}

		if ch < 0x20 || ch > 0x5F {
			return 0, fmt.Errorf("%w: %q in acronym %q", ErrCharOutOfRange, string(ch), text)
		}

		code = (code << acronymBitsPerChar) | uint64(ch-0x20)
	}

	return packID(CodingAcronym, code), nil
}

// DecodeAcronym returns the trimmed text encoded by id.
func DecodeAcronym(id ID) (string, error) {
	coding, payload := unpackID(id)
	if coding != CodingAcronym {
		return "", fmt.Errorf("%w: not an acronym id", ErrNameNotEncoded)
	}

	var buf [acronymMaxChars]byte

	for i := acronymMaxChars - 1; i >= 0; i-- {
		buf[i] = byte(payload&0x3F) + 0x20
		payload >>= acronymBitsPerChar
	}

	return strings.Trim(string(buf[:]), " "), nil
}

// EncodeNumeric wraps a parent-scoped integer name. Passing AutoID asks the
// parent store to assign the next free number at insertion time.
func EncodeNumeric(value uint64) (ID, error) {
	if value > autoIDMax+1 {
		return 0, fmt.Errorf("%w: %d exceeds %d-bit numeric range", ErrInvalidName, value, autoIDBits)
	}

	return packID(CodingNumeric, value), nil
}

// DecodeNumeric returns the integer name encoded by id.
func DecodeNumeric(id ID) (uint64, error) {
	coding, payload := unpackID(id)
	if coding != CodingNumeric {
		return 0, fmt.Errorf("%w: not a numeric id", ErrNameNotEncoded)
	}

	return payload, nil
}

// EncodeReference wraps a numeric index into an external name dictionary.
func EncodeReference(dictIndex uint64) (ID, error) {
	if dictIndex > autoIDMax+1 {
		return 0, fmt.Errorf("%w: %d exceeds %d-bit reference range", ErrInvalidName, dictIndex, autoIDBits)
	}

	return packID(CodingReference, dictIndex), nil
}

// DecodeReference returns the dictionary index encoded by id.
func DecodeReference(id ID) (uint64, error) {
	coding, payload := unpackID(id)
	if coding != CodingReference {
		return 0, fmt.Errorf("%w: not a reference id", ErrNameNotEncoded)
	}

	return payload, nil
}

// Decode renders id as a display string regardless of its coding: Word and
// Acronym ids decode to their original text, Numeric ids render as a plain
// decimal, and Reference ids (which only carry a dictionary index, not text
// of their own) render as "#<index>" since no dictionary is available here.
func Decode(id ID) (string, error) {
	switch CodingOf(id) {
	case CodingWord:
		return DecodeWord(id)
	case CodingAcronym:
		return DecodeAcronym(id)
	case CodingNumeric:
		value, err := DecodeNumeric(id)
		if err != nil {
			return "", err
		}

		return strconv.FormatUint(value, 10), nil
	case CodingReference:
		index, err := DecodeReference(id)
		if err != nil {
			return "", err
		}

		return "#" + strconv.FormatUint(index, 10), nil
	default:
		return "", fmt.Errorf("%w: unknown coding %d", ErrNameNotEncoded, CodingOf(id))
	}
}

// IsAutoID reports whether id is the AutoID sentinel.
func IsAutoID(id ID) bool {
	coding, payload := unpackID(id)

	return coding == CodingNumeric && payload == uint64(AutoID)
}

// CodingOf returns the coding discriminator carried by id.
func CodingOf(id ID) Coding {
	coding, _ := unpackID(id)

	return coding
}

func packID(coding Coding, payload uint64) ID {
	return ID(uint64(coding)<<codingShift | (payload & (1<<nameBits - 1)))
}

func unpackID(id ID) (Coding, uint64) {
	payloadMask := uint64(1)<<autoIDBits - 1

	return Coding(uint64(id) >> codingShift & 0x3), uint64(id) & payloadMask
}

// DT is a Domain-Tag pair: two IDs that together name a record. The top 6
// bits of each field are reserved for the caller (e.g. to mark system
// records) and are left untouched by this package.
type DT struct {
	Domain ID
	Tag    ID
}

// Compare returns a lexicographic ordering over (Domain, Tag): negative if
// a < b, zero if equal, positive if a > b.
func Compare(a, b DT) int {
	if a.Domain != b.Domain {
		if a.Domain < b.Domain {
			return -1
		}

		return 1
	}

	switch {
	case a.Tag < b.Tag:
		return -1
	case a.Tag > b.Tag:
		return 1
	default:
		return 0
	}
}

// Equal reports whether a and b name the same record.
func Equal(a, b DT) bool {
	return a.Domain == b.Domain && a.Tag == b.Tag
}

// AutoIDSource assigns parent-scoped numeric names; implemented by Store.
type AutoIDSource interface {
	NextAutoID() (uint64, error)
}

// NextAutoID returns source's next free autoid and advances its counter.
// It fails with ErrAutoIDOverflow once the 56-bit counter is exhausted.
func NextAutoID(source AutoIDSource) (ID, error) {
	next, err := source.NextAutoID()
	if err != nil {
		return 0, err
	}

	if next > autoIDMax {
		return 0, fmt.Errorf("%w: next value %d", ErrAutoIDOverflow, next)
	}

	return EncodeNumeric(next)
}
