package csvlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igwatcher/pkg/profile"
)

func testObservation(username string, updated bool) profile.Observation {
	return profile.Observation{
		Snapshot: profile.Snapshot{
			Username:  username,
			Timestamp: time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC),
			Followers: profile.Count(105),
			Following: profile.Count(128),
		},
		PictureUpdated: updated,
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestJournalAppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile_log.csv")
	journal, err := NewJournal(path)
	require.NoError(t, err)

	require.NoError(t, journal.Append(testObservation("usera", true)))
	require.NoError(t, journal.Append(testObservation("userb", false)))

	records := readAll(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"timestamp", "username", "followers", "following", "is_picture_updated"}, records[0])
	assert.Equal(t, []string{"2025-03-14T15:00:00Z", "usera", "105", "128", "1"}, records[1])
	assert.Equal(t, []string{"2025-03-14T15:00:00Z", "userb", "105", "128", "0"}, records[2])
}

func TestJournalAppendToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile_log.csv")

	// First journal writes header + one row.
	journal, err := NewJournal(path)
	require.NoError(t, err)
	require.NoError(t, journal.Append(testObservation("usera", true)))

	// A fresh journal over the same file must not repeat the header.
	journal2, err := NewJournal(path)
	require.NoError(t, err)
	require.NoError(t, journal2.Append(testObservation("usera", false)))

	records := readAll(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, "timestamp", records[0][0])
	assert.Equal(t, "1", records[1][4])
	assert.Equal(t, "0", records[2][4])
}

func TestJournalUnknownCountsAreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile_log.csv")
	journal, err := NewJournal(path)
	require.NoError(t, err)

	obs := testObservation("usera", false)
	obs.Followers = nil
	obs.Following = nil
	require.NoError(t, journal.Append(obs))

	records := readAll(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, "", records[1][2])
	assert.Equal(t, "", records[1][3])
}

func TestJournalRowCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile_log.csv")
	journal, err := NewJournal(path)
	require.NoError(t, err)

	count, err := journal.RowCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, journal.Append(testObservation("usera", true)))
	require.NoError(t, journal.Append(testObservation("userb", true)))

	count, err = journal.RowCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestJournalCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "profile_log.csv")
	journal, err := NewJournal(path)
	require.NoError(t, err)
	require.NoError(t, journal.Append(testObservation("usera", true)))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
