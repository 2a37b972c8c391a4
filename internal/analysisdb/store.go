package analysisdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Session is one run of the recovery pipeline over a disk image or a live
// drive.
type Session struct {
	SessionID string
	Source    string
	DiskType  string
	CreatedAt int64
}

// TrackReport is the persisted per-track analysis result.
type TrackReport struct {
	ReportID            string
	SessionID           string
	Track               int
	Head                int
	Revolutions         int
	MeanRPM             float64
	RPMVariance         float64
	AlignmentQuality    float64
	WeakBitCount        int
	WeakBitsTruncated   bool
	Encoding            string
	CellTimeNS          float64
	CrosstalkPercentage float64
	QualityBefore       float64
	QualityAfter        float64
	CreatedAt           int64
}

// Store reads and writes sessions and track reports.
type Store struct {
	db *sql.DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db.DB}
}

// InsertSession stores a new session, assigning SessionID and CreatedAt if
// they are unset.
func (s *Store) InsertSession(sess *Session) error {
	if sess.SessionID == "" {
		sess.SessionID = uuid.New().String()
	}
	if sess.CreatedAt == 0 {
		sess.CreatedAt = time.Now().UnixNano()
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO sessions (session_id, source, disk_type, created_at)
			VALUES (?, ?, ?, ?)`,
			sess.SessionID, sess.Source, sess.DiskType, sess.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
}

// GetSession fetches one session by ID.
func (s *Store) GetSession(sessionID string) (*Session, error) {
	var sess Session
	err := retryOnBusy(func() error {
		row := s.db.QueryRow(`
			SELECT session_id, source, disk_type, created_at
			FROM sessions WHERE session_id = ?`, sessionID)
		return row.Scan(&sess.SessionID, &sess.Source, &sess.DiskType, &sess.CreatedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// InsertTrackReport stores a track report, assigning ReportID and CreatedAt
// if they are unset.
func (s *Store) InsertTrackReport(r *TrackReport) error {
	if r.ReportID == "" {
		r.ReportID = uuid.New().String()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixNano()
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO track_reports (
				report_id, session_id, track, head, revolutions,
				mean_rpm, rpm_variance, alignment_quality,
				weak_bit_count, weak_bits_truncated,
				encoding, cell_time_ns,
				crosstalk_percentage, quality_before, quality_after,
				created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ReportID, r.SessionID, r.Track, r.Head, r.Revolutions,
			r.MeanRPM, r.RPMVariance, r.AlignmentQuality,
			r.WeakBitCount, boolToInt(r.WeakBitsTruncated),
			r.Encoding, r.CellTimeNS,
			r.CrosstalkPercentage, r.QualityBefore, r.QualityAfter,
			r.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert track report: %w", err)
		}
		return nil
	})
}

// ListBySession returns all track reports for a session ordered by track
// then head.
func (s *Store) ListBySession(sessionID string) ([]TrackReport, error) {
	var reports []TrackReport
	err := retryOnBusy(func() error {
		rows, err := s.db.Query(`
			SELECT report_id, session_id, track, head, revolutions,
				mean_rpm, rpm_variance, alignment_quality,
				weak_bit_count, weak_bits_truncated,
				encoding, cell_time_ns,
				crosstalk_percentage, quality_before, quality_after,
				created_at
			FROM track_reports
			WHERE session_id = ?
			ORDER BY track, head`, sessionID)
		if err != nil {
			return err
		}
		defer rows.Close()

		reports = reports[:0]
		for rows.Next() {
			var r TrackReport
			var truncated int
			if err := rows.Scan(
				&r.ReportID, &r.SessionID, &r.Track, &r.Head, &r.Revolutions,
				&r.MeanRPM, &r.RPMVariance, &r.AlignmentQuality,
				&r.WeakBitCount, &truncated,
				&r.Encoding, &r.CellTimeNS,
				&r.CrosstalkPercentage, &r.QualityBefore, &r.QualityAfter,
				&r.CreatedAt); err != nil {
				return err
			}
			r.WeakBitsTruncated = truncated != 0
			reports = append(reports, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list track reports: %w", err)
	}
	return reports, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
