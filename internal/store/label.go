package store

import "fmt"

// ReplaceLabels replaces the cached label catalog wholesale.
func (db *DB) ReplaceLabels(labels []Label) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM labels`); err != nil {
		return fmt.Errorf("clear labels: %w", err)
	}
	for _, l := range labels {
		if _, err := tx.Exec(`INSERT INTO labels (id, name, color) VALUES (?, ?, ?)`,
			l.ID, l.Name, l.Color); err != nil {
			return fmt.Errorf("insert label: %w", err)
		}
	}
	return tx.Commit()
}

// ListLabels returns the cached label catalog.
func (db *DB) ListLabels() ([]Label, error) {
	rows, err := db.Query(`SELECT id, name, color FROM labels ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var labels []Label
	for rows.Next() {
		var l Label
		if err := rows.Scan(&l.ID, &l.Name, &l.Color); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}
