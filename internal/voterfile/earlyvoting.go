package voterfile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EarlyVote is one early-voting record, keyed to a voter.
type EarlyVote struct {
	VUID   int64
	County string
	Method string
	Date   time.Time
}

// Early-voting exports embed the election day in the file name,
// e.g. early_voting_20241022.csv.
var evDateRe = regexp.MustCompile(`(\d{8})`)

// LoadEarlyVoting reads every CSV in dir into a VUID-keyed map. A voter
// appearing in multiple files keeps the earliest record. Files without a
// parseable date in their name are skipped with a log line.
func LoadEarlyVoting(dir string) (map[int64]EarlyVote, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}

	votes := map[int64]EarlyVote{}
	for _, path := range paths {
		date, ok := dateFromFilename(path)
		if !ok {
			log.Printf("[earlyvoting] no date in filename, skipping: %s", filepath.Base(path))
			continue
		}
		if err := loadEarlyVotingFile(path, date, votes); err != nil {
			return nil, fmt.Errorf("early voting file %s: %w", filepath.Base(path), err)
		}
	}
	return votes, nil
}

func dateFromFilename(path string) (time.Time, bool) {
	m := evDateRe.FindString(filepath.Base(path))
	if m == "" {
		return time.Time{}, false
	}
	d, err := time.Parse("20060102", m)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func loadEarlyVotingFile(path string, date time.Time, votes map[int64]EarlyVote) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idIdx, ok := col["id_voter"]
	if !ok {
		return fmt.Errorf("missing required column: id_voter")
	}

	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if idIdx >= len(rec) {
			continue
		}
		vuid, err := strconv.ParseInt(strings.TrimSpace(rec[idIdx]), 10, 64)
		if err != nil {
			continue
		}
		if prev, seen := votes[vuid]; seen && !prev.Date.After(date) {
			continue
		}
		votes[vuid] = EarlyVote{
			VUID:   vuid,
			County: strings.ToUpper(get(rec, "county")),
			Method: get(rec, "method"),
			Date:   date,
		}
	}
	return nil
}

// MergeEarlyVoting flags voters present in the early-voting records and
// returns how many were flagged.
func MergeEarlyVoting(voters []*Voter, votes map[int64]EarlyVote) int {
	flagged := 0
	for _, v := range voters {
		if _, ok := votes[v.VUID]; ok {
			v.VotedEarly = true
			flagged++
		}
	}
	return flagged
}
