package merge

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/internal/store"
	cerrors "github.com/Adithya-Monish-Kumar-K/Distributed-Concordance-Pipeline/pkg/errors"
)

// Export writes the final store's entries as the labeled concordance text,
// one word per line in alphabetical order:
//
//	a.      all                      {2:1,5}
//
// The file is written to a temp path and renamed into place so a partial
// export never replaces an existing output. Returns the number of words
// written.
func Export(final *store.Store, outPath string) (int, error) {
	it, err := final.Iterate()
	if err != nil {
		return 0, cerrors.Merge(cerrors.ErrExportFailed, "reading final store: %v", err)
	}
	defer it.Close()

	tmpPath := outPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, cerrors.Merge(cerrors.ErrExportFailed, "creating %s: %v", tmpPath, err)
	}

	w := bufio.NewWriter(f)
	words := 0
	for {
		entry, err := it.Next()
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
			return 0, cerrors.Merge(cerrors.ErrExportFailed, "reading final store: %v", err)
		}
		if entry == nil {
			break
		}
		words++
		if _, err := w.WriteString(formatLine(words, *entry)); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return 0, cerrors.Merge(cerrors.ErrExportFailed, "writing %s: %v", tmpPath, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, cerrors.Merge(cerrors.ErrExportFailed, "flushing %s: %v", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, cerrors.Merge(cerrors.ErrExportFailed, "closing %s: %v", tmpPath, err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return 0, cerrors.Merge(cerrors.ErrExportFailed, "renaming %s: %v", tmpPath, err)
	}
	return words, nil
}

// formatLine renders one output line: an alphabetic line label, the word
// left-padded into a 25-character column, then the frequency and the
// sentence numbers joined by commas.
func formatLine(lineNo int, e store.Entry) string {
	nums := make([]string, len(e.Sentences))
	for i, s := range e.Sentences {
		nums[i] = strconv.Itoa(s)
	}
	return fmt.Sprintf("%s%s%s{%d:%s}\n",
		lineLabel(lineNo),
		e.Word,
		pad(25-len(e.Word)),
		e.Frequency,
		strings.Join(nums, ","),
	)
}

// lineLabel converts a 1-based line number into its alphabetic label: lines
// 1..26 are "a.".."z.", lines 27..52 "aa.".."zz.", and so on, the label
// padded to a fixed 7-character column.
func lineLabel(n int) string {
	multiplier := (n + 25) / 26
	letter := n - (multiplier-1)*26
	label := strings.Repeat(string(rune('a'+letter-1)), multiplier)
	return label + "." + pad(6-len(label))
}

func pad(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}
