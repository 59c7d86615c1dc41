package repository

import (
	"context"
	"fmt"

	"github.com/digioh-event-services/services/guest-lambda/models"
)

// upsertAttribute is the only way attribute values change
func upsertAttribute(ctx context.Context, ex execer, eventID, guestID int64, key, value string) error {
	query := `
		INSERT INTO attributes (event_id, guest_id, attribute_key, attribute_value)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE attribute_value = VALUES(attribute_value)
	`
	if _, err := ex.ExecContext(ctx, query, eventID, guestID, key, value); err != nil {
		return fmt.Errorf("failed to upsert attribute %q: %w", key, err)
	}
	return nil
}

// ListAttributesForGuests loads the attribute maps of many guests with one query
func (r *GuestRepository) ListAttributesForGuests(ctx context.Context, guestIDs []int64) (map[int64]map[string]string, error) {
	out := make(map[int64]map[string]string, len(guestIDs))
	if len(guestIDs) == 0 {
		return out, nil
	}

	args := make([]interface{}, len(guestIDs))
	for i, id := range guestIDs {
		args[i] = id
	}
	query := "SELECT guest_id, attribute_key, attribute_value FROM attributes WHERE guest_id IN (" +
		placeholders(len(guestIDs)) + ") ORDER BY id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var guestID int64
		var key string
		var value *string
		if err := rows.Scan(&guestID, &key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		m, ok := out[guestID]
		if !ok {
			m = map[string]string{}
			out[guestID] = m
		}
		if value != nil {
			m[key] = *value
		} else {
			m[key] = ""
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attributes: %w", err)
	}
	return out, nil
}

// ListAttributes returns the attribute rows of one guest
func (r *GuestRepository) ListAttributes(ctx context.Context, guestID int64) ([]models.Attribute, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, guest_id, attribute_key, COALESCE(attribute_value, '')
		FROM attributes
		WHERE guest_id = ?
		ORDER BY id ASC
	`, guestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attributes: %w", err)
	}
	defer rows.Close()

	attrs := []models.Attribute{}
	for rows.Next() {
		var a models.Attribute
		if err := rows.Scan(&a.ID, &a.EventID, &a.GuestID, &a.Key, &a.Value); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		attrs = append(attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attributes: %w", err)
	}
	return attrs, nil
}

// DeleteAttribute removes one attribute. Returns false when nothing matched.
func (r *GuestRepository) DeleteAttribute(ctx context.Context, guestID int64, key string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM attributes WHERE guest_id = ? AND attribute_key = ?", guestID, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete attribute: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// AttributeKeys returns the distinct attribute keys used in an event, in first-seen order
func (r *GuestRepository) AttributeKeys(ctx context.Context, eventID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT attribute_key
		FROM attributes
		WHERE event_id = ?
		GROUP BY attribute_key
		ORDER BY MIN(id) ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attribute keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan attribute key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attribute keys: %w", err)
	}
	return keys, nil
}
