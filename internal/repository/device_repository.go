package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirk1998/secure-bank/internal/database"
	"github.com/amirk1998/secure-bank/internal/models"
)

type DeviceRepository struct {
	db database.DBTX
}

func NewDeviceRepository(db database.DBTX) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Touch records a login from device. isNew reports a device id the account
// had never used before.
func (r *DeviceRepository) Touch(ctx context.Context, device *models.Device) (isNew bool, err error) {
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO devices (user_id, device_id, ip_address, location, first_seen, last_seen)
        VALUES (?, ?, ?, ?, ?, ?)
    `, device.UserID, device.DeviceID, device.IPAddress, device.Location, now, now)
	if err != nil {
		return false, fmt.Errorf("failed to record device: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 1 {
		device.FirstSeen = now
		device.LastSeen = now
		return true, nil
	}

	_, err = r.db.ExecContext(ctx, `
        UPDATE devices
        SET ip_address = ?, location = ?, last_seen = ?
        WHERE user_id = ? AND device_id = ?
    `, device.IPAddress, device.Location, now, device.UserID, device.DeviceID)
	if err != nil {
		return false, fmt.Errorf("failed to update device: %w", err)
	}
	device.LastSeen = now
	return false, nil
}

// ListByUser returns known devices, most recently seen first.
func (r *DeviceRepository) ListByUser(ctx context.Context, userID int) ([]*models.Device, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT user_id, device_id, ip_address, location, first_seen, last_seen
        FROM devices
        WHERE user_id = ?
        ORDER BY last_seen DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		d := &models.Device{}
		if err := rows.Scan(&d.UserID, &d.DeviceID, &d.IPAddress, &d.Location, &d.FirstSeen, &d.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}

	return devices, rows.Err()
}
