package replay

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/pebble"
)

// fingerprintKey stores the indexed file's identity (size + mtime) so
// a stale index — built against an input file that has since changed
// — can be detected instead of silently trusted. It is prefixed with
// a byte lower than every tsKey's prefix so a Lookup scanning forward
// from a timestamp key can never land on it.
var fingerprintKey = []byte{0x00}

const tsKeyPrefix = 0x01

func fingerprintOf(csvPath string) ([]byte, error) {
	st, err := os.Stat(csvPath)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("%d:%d", st.Size(), st.ModTime().UnixNano())), nil
}

// TimestampIndex accelerates CSVSource.SeekToTime by mapping event
// timestamps to their byte offset in the source file, so a seek
// becomes one pebble SeekGE instead of a linear rescan. It is a cache
// over an immutable input file, never book state: deleting it only
// costs a rebuild, never correctness.
type TimestampIndex struct {
	db *pebble.DB
}

// OpenTimestampIndex opens (or creates) the on-disk index at dir.
func OpenTimestampIndex(dir string) (*TimestampIndex, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &TimestampIndex{db: db}, nil
}

func (idx *TimestampIndex) Close() error { return idx.db.Close() }

// MatchesSource reports whether this index was built against csvPath
// in its current state, comparing size and modification time. A
// mismatch means the index should be rebuilt rather than trusted.
func (idx *TimestampIndex) MatchesSource(csvPath string) (bool, error) {
	want, err := fingerprintOf(csvPath)
	if err != nil {
		return false, err
	}
	got, closer, err := idx.db.Get(fingerprintKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer closer.Close()
	match := string(got) == string(want)
	return match, nil
}

// Put records that the event with timestamp tsNs starts at byte
// offset in the source file.
func (idx *TimestampIndex) Put(tsNs uint64, offset int64) error {
	return idx.db.Set(tsKey(tsNs), offsetVal(offset), pebble.Sync)
}

// Lookup finds the smallest indexed offset whose timestamp is >=
// tsNs. ok is false if no such entry exists (tsNs is past the end of
// the indexed range).
func (idx *TimestampIndex) Lookup(tsNs uint64) (offset int64, ok bool, err error) {
	iter, err := idx.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, false, err
	}
	defer iter.Close()

	if !iter.SeekGE(tsKey(tsNs)) {
		return 0, false, iter.Error()
	}
	off, err := decodeOffset(iter.Value())
	if err != nil {
		return 0, false, err
	}
	return off, true, nil
}

func tsKey(tsNs uint64) []byte {
	k := make([]byte, 9)
	k[0] = tsKeyPrefix
	binary.BigEndian.PutUint64(k[1:], tsNs)
	return k
}

func offsetVal(offset int64) []byte {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, uint64(offset))
	return v
}

func decodeOffset(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, errors.New("replay: corrupt timestamp index entry")
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// BuildTimestampIndex does a single forward pass over a CSV replay
// file, recording the byte offset of every data row keyed by its
// timestamp column, and returns the opened index ready for use by a
// CSVSource. Of consecutive rows sharing a timestamp only the first is
// recorded, so a seek lands on the earliest of them. Timestamp entries
// already present in indexDir are dropped first. Rows that fail to
// parse are skipped; building the index never fails on a single bad
// row.
func BuildTimestampIndex(csvPath, indexDir string) (*TimestampIndex, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := OpenTimestampIndex(indexDir)
	if err != nil {
		return nil, err
	}
	if err := idx.db.DeleteRange([]byte{tsKeyPrefix}, []byte{tsKeyPrefix + 1}, pebble.Sync); err != nil {
		idx.Close()
		return nil, err
	}

	fingerprint, err := fingerprintOf(csvPath)
	if err != nil {
		idx.Close()
		return nil, err
	}

	br := bufio.NewReader(f)
	header, headerLen, err := readHeader(br)
	if err != nil {
		idx.Close()
		return nil, err
	}
	tsCol, ok := header["timestamp"]
	if !ok {
		idx.Close()
		return nil, errors.New("replay: csv header missing timestamp column")
	}

	var offset int64 = int64(headerLen)
	var lastTs uint64
	haveLast := false
	for {
		line, readErr := br.ReadString('\n')
		if line == "" && readErr != nil {
			break
		}
		lineLen := int64(len(line))
		cols := strings.Split(strings.TrimRight(line, "\r\n"), ",")
		if tsCol < len(cols) {
			if ts, convErr := strconv.ParseUint(cols[tsCol], 10, 64); convErr == nil {
				if !haveLast || ts != lastTs {
					_ = idx.Put(ts, offset)
				}
				lastTs, haveLast = ts, true
			}
		}
		offset += lineLen
		if readErr != nil {
			break
		}
	}

	if err := idx.db.Set(fingerprintKey, fingerprint, pebble.Sync); err != nil {
		idx.Close()
		return nil, err
	}

	return idx, nil
}
