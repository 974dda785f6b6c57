package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/circle-time/internal/persistence"
)

const (
	statusConfirmed = "confirmed"
	statusCheckedIn = "checked_in"
	redactedTitle   = "[redacted]"
)

// BookingRepository implements persistence.BookingRepository on SQLite.
type BookingRepository struct {
	store *Store
}

// NewBookingRepository wires a booking repository to the store.
func NewBookingRepository(store *Store) *BookingRepository {
	return &BookingRepository{store: store}
}

const bookingColumns = `id, room_id, organizer_id, title, description, start_time, end_time,
	status, checked_in, checked_in_at, is_recurring, recurrence_type, recurrence_end_date,
	recurrence_interval, recurrence_weekdays, recurrence_day_of_month, parent_id,
	reminder_sent, created_at, updated_at`

// CreateBooking inserts a booking together with its attendees. When the
// booking's status occupies the room, the overlap check runs in the same
// transaction as the insert.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	return r.store.withTransaction(ctx, func(tx *sql.Tx) error {
		if occupiesRoom(booking.Status) {
			conflicted, err := hasOverlapTx(tx, booking.RoomID, booking.Start, booking.End, "")
			if err != nil {
				return err
			}
			if conflicted {
				return persistence.ErrConflict
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO bookings (`+bookingColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			booking.ID,
			booking.RoomID,
			booking.OrganizerID,
			booking.Title,
			booking.Description,
			formatTime(booking.Start),
			formatTime(booking.End),
			booking.Status,
			booking.CheckedIn,
			formatTimePtr(booking.CheckedInAt),
			booking.IsRecurring,
			booking.RecurrenceType,
			formatTimePtr(booking.RecurrenceEndDate),
			booking.RecurrenceInterval,
			joinInts(booking.RecurrenceWeekdays),
			booking.RecurrenceDayOfMonth,
			nullString(booking.ParentID),
			booking.ReminderSent,
			formatTime(booking.CreatedAt),
			formatTime(booking.UpdatedAt),
		)
		if err != nil {
			return mapSQLiteError(err)
		}

		if err := insertAttendeesTx(ctx, tx, booking.ID, booking.AttendeeIDs); err != nil {
			return err
		}
		return insertExtensionsTx(ctx, tx, booking.ID, booking.Extensions)
	})
}

// UpdateBooking rewrites a booking, its attendees, and its extension log.
// Interval changes on an active booking are conflict-checked against every
// other booking on the room inside the same transaction.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	return r.store.withTransaction(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = ?)`, booking.ID).Scan(&exists); err != nil {
			return mapSQLiteError(err)
		}
		if !exists {
			return persistence.ErrNotFound
		}

		if occupiesRoom(booking.Status) {
			conflicted, err := hasOverlapTx(tx, booking.RoomID, booking.Start, booking.End, booking.ID)
			if err != nil {
				return err
			}
			if conflicted {
				return persistence.ErrConflict
			}
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE bookings SET
				room_id = ?, organizer_id = ?, title = ?, description = ?,
				start_time = ?, end_time = ?, status = ?, checked_in = ?, checked_in_at = ?,
				is_recurring = ?, recurrence_type = ?, recurrence_end_date = ?,
				recurrence_interval = ?, recurrence_weekdays = ?, recurrence_day_of_month = ?,
				parent_id = ?, reminder_sent = ?, updated_at = ?
			WHERE id = ?`,
			booking.RoomID,
			booking.OrganizerID,
			booking.Title,
			booking.Description,
			formatTime(booking.Start),
			formatTime(booking.End),
			booking.Status,
			booking.CheckedIn,
			formatTimePtr(booking.CheckedInAt),
			booking.IsRecurring,
			booking.RecurrenceType,
			formatTimePtr(booking.RecurrenceEndDate),
			booking.RecurrenceInterval,
			joinInts(booking.RecurrenceWeekdays),
			booking.RecurrenceDayOfMonth,
			nullString(booking.ParentID),
			booking.ReminderSent,
			formatTime(booking.UpdatedAt),
			booking.ID,
		)
		if err != nil {
			return mapSQLiteError(err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM booking_attendees WHERE booking_id = ?`, booking.ID); err != nil {
			return mapSQLiteError(err)
		}
		if err := insertAttendeesTx(ctx, tx, booking.ID, booking.AttendeeIDs); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM booking_extensions WHERE booking_id = ?`, booking.ID); err != nil {
			return mapSQLiteError(err)
		}
		return insertExtensionsTx(ctx, tx, booking.ID, booking.Extensions)
	})
}

// GetBooking retrieves a booking by id with attendees and extensions loaded.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	row := r.store.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Booking{}, persistence.ErrNotFound
		}
		return persistence.Booking{}, err
	}
	if err := r.loadRelations(ctx, &booking); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}

// ListBookings returns bookings matching the filter ordered by start time.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	var clauses []string
	var args []any

	if filter.RoomID != "" {
		clauses = append(clauses, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.OrganizerID != "" {
		clauses = append(clauses, "organizer_id = ?")
		args = append(args, filter.OrganizerID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := strings.Repeat("?, ", len(filter.Statuses))
		clauses = append(clauses, "status IN ("+strings.TrimSuffix(placeholders, ", ")+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if filter.StartsBefore != nil {
		clauses = append(clauses, "start_time < ?")
		args = append(args, formatTime(*filter.StartsBefore))
	}
	if filter.StartsAtOrAfter != nil {
		clauses = append(clauses, "start_time >= ?")
		args = append(args, formatTime(*filter.StartsAtOrAfter))
	}
	if filter.EndsAfter != nil {
		clauses = append(clauses, "end_time > ?")
		args = append(args, formatTime(*filter.EndsAfter))
	}
	if filter.OnDate != nil {
		day := filter.OnDate.UTC()
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		clauses = append(clauses, "start_time >= ? AND start_time < ?")
		args = append(args, formatTime(dayStart), formatTime(dayStart.AddDate(0, 0, 1)))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_time, id"

	rows, err := r.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}

	for i := range bookings {
		if err := r.loadRelations(ctx, &bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

// ReleaseNoShows flips stale confirmed bookings to no_show in one batch
// update and returns the released bookings.
func (r *BookingRepository) ReleaseNoShows(ctx context.Context, staleBefore, stillRunningAt time.Time) ([]persistence.Booking, error) {
	var released []persistence.Booking
	err := r.store.withTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT `+bookingColumns+` FROM bookings
			WHERE status = ? AND checked_in = 0 AND start_time <= ? AND end_time >= ?
			ORDER BY start_time, id`,
			statusConfirmed, formatTime(staleBefore), formatTime(stillRunningAt))
		if err != nil {
			return mapSQLiteError(err)
		}
		defer rows.Close()

		for rows.Next() {
			booking, err := scanBooking(rows)
			if err != nil {
				return err
			}
			released = append(released, booking)
		}
		if err := rows.Err(); err != nil {
			return mapSQLiteError(err)
		}
		if len(released) == 0 {
			return nil
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(released)), ", ")
		args := make([]any, 0, len(released)+1)
		args = append(args, formatTime(stillRunningAt))
		for _, booking := range released {
			args = append(args, booking.ID)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = 'no_show', updated_at = ? WHERE id IN (`+placeholders+`)`,
			args...); err != nil {
			return mapSQLiteError(err)
		}

		for i := range released {
			released[i].Status = "no_show"
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// ListDueReminders returns confirmed bookings starting within [from, until]
// that have no reminder recorded yet.
func (r *BookingRepository) ListDueReminders(ctx context.Context, from, until time.Time) ([]persistence.Booking, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE status = ? AND reminder_sent = 0 AND start_time >= ? AND start_time <= ?
		ORDER BY start_time, id`,
		statusConfirmed, formatTime(from), formatTime(until))
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var due []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, booking)
	}
	return due, rows.Err()
}

// MarkReminderSent records that a check-in reminder has fired for the booking.
func (r *BookingRepository) MarkReminderSent(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx,
		`UPDATE bookings SET reminder_sent = 1, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), id)
	if err != nil {
		return mapSQLiteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// PseudonymizeBefore blanks title and description on bookings that started
// before the cutoff. Rows already redacted are left alone so repeated runs
// report zero.
func (r *BookingRepository) PseudonymizeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.store.db.ExecContext(ctx, `
		UPDATE bookings SET title = ?, description = '', updated_at = ?
		WHERE start_time < ? AND title != ?`,
		redactedTitle, formatTime(time.Now()), formatTime(cutoff), redactedTitle)
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return result.RowsAffected()
}

func (r *BookingRepository) loadRelations(ctx context.Context, booking *persistence.Booking) error {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT user_id FROM booking_attendees WHERE booking_id = ? ORDER BY user_id`, booking.ID)
	if err != nil {
		return mapSQLiteError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return mapSQLiteError(err)
		}
		booking.AttendeeIDs = append(booking.AttendeeIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return mapSQLiteError(err)
	}

	extRows, err := r.store.db.QueryContext(ctx,
		`SELECT extended_by, minutes, created_at FROM booking_extensions WHERE booking_id = ? ORDER BY seq`, booking.ID)
	if err != nil {
		return mapSQLiteError(err)
	}
	defer extRows.Close()
	for extRows.Next() {
		var ext persistence.Extension
		var createdAt string
		if err := extRows.Scan(&ext.ExtendedBy, &ext.Minutes, &createdAt); err != nil {
			return mapSQLiteError(err)
		}
		ext.BookingID = booking.ID
		if ext.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		booking.Extensions = append(booking.Extensions, ext)
	}
	return extRows.Err()
}

// hasOverlapTx runs the half-open overlap query against active bookings on
// the room inside the caller's transaction.
func hasOverlapTx(tx *sql.Tx, roomID string, start, end time.Time, excludeID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE room_id = ? AND status IN (?, ?) AND start_time < ? AND end_time > ?`
	args := []any{roomID, statusConfirmed, statusCheckedIn, formatTime(end), formatTime(start)}
	if excludeID != "" {
		query += ` AND id != ?`
		args = append(args, excludeID)
	}
	query += `)`

	var conflicted bool
	if err := tx.QueryRow(query, args...).Scan(&conflicted); err != nil {
		return false, mapSQLiteError(err)
	}
	return conflicted, nil
}

func insertAttendeesTx(ctx context.Context, tx *sql.Tx, bookingID string, attendeeIDs []string) error {
	for _, userID := range attendeeIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO booking_attendees (booking_id, user_id) VALUES (?, ?)`,
			bookingID, userID); err != nil {
			return mapSQLiteError(err)
		}
	}
	return nil
}

func insertExtensionsTx(ctx context.Context, tx *sql.Tx, bookingID string, extensions []persistence.Extension) error {
	for i, ext := range extensions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO booking_extensions (booking_id, seq, extended_by, minutes, created_at) VALUES (?, ?, ?, ?, ?)`,
			bookingID, i+1, ext.ExtendedBy, ext.Minutes, formatTime(ext.CreatedAt)); err != nil {
			return mapSQLiteError(err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(scanner rowScanner) (persistence.Booking, error) {
	var (
		booking     persistence.Booking
		start       string
		end         string
		checkedInAt sql.NullString
		recEndDate  sql.NullString
		weekdays    string
		parentID    sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&booking.ID,
		&booking.RoomID,
		&booking.OrganizerID,
		&booking.Title,
		&booking.Description,
		&start,
		&end,
		&booking.Status,
		&booking.CheckedIn,
		&checkedInAt,
		&booking.IsRecurring,
		&booking.RecurrenceType,
		&recEndDate,
		&booking.RecurrenceInterval,
		&weekdays,
		&booking.RecurrenceDayOfMonth,
		&parentID,
		&booking.ReminderSent,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Booking{}, err
		}
		return persistence.Booking{}, mapSQLiteError(err)
	}

	if booking.Start, err = parseTime(start); err != nil {
		return persistence.Booking{}, err
	}
	if booking.End, err = parseTime(end); err != nil {
		return persistence.Booking{}, err
	}
	if booking.CheckedInAt, err = parseTimePtr(checkedInAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.RecurrenceEndDate, err = parseTimePtr(recEndDate); err != nil {
		return persistence.Booking{}, err
	}
	if booking.RecurrenceWeekdays, err = splitInts(weekdays); err != nil {
		return persistence.Booking{}, err
	}
	if parentID.Valid {
		booking.ParentID = &parentID.String
	}
	if booking.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}

func occupiesRoom(status string) bool {
	return status == statusConfirmed || status == statusCheckedIn
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

// mapSQLiteError translates driver errors into persistence sentinels where a
// stable meaning exists.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return persistence.ErrDuplicate
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return persistence.ErrNotFound
	default:
		return err
	}
}
