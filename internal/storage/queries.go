package storage

// SQL used by SQLiteRepository. Period filters compare substr(date,1,7)
// against the "YYYY-MM" key so that dates stay plain ISO text.
const (
	createUserSQL = `INSERT INTO users (username, password) VALUES (?, ?)`

	getUserByUsernameSQL = `SELECT id, username, password, created_at FROM users WHERE username = ?`

	getUserByIDSQL = `SELECT id, username, password, created_at FROM users WHERE id = ?`

	createTransactionSQL = `
		INSERT INTO transactions (user_id, type, amount, category, date)
		VALUES (?, ?, ?, ?, ?)`

	getTransactionSQL = `
		SELECT id, user_id, type, amount, category, date
		FROM transactions
		WHERE id = ?`

	periodTotalsSQL = `
		SELECT
			IFNULL(SUM(CASE WHEN type = 'Income' THEN amount ELSE 0 END), 0),
			IFNULL(SUM(CASE WHEN type = 'Expense' THEN amount ELSE 0 END), 0),
			IFNULL(SUM(CASE WHEN type = 'Savings' THEN amount ELSE 0 END), 0)
		FROM transactions
		WHERE user_id = ? AND substr(date, 1, 7) = ?`

	lifetimeTotalsSQL = `
		SELECT
			IFNULL(SUM(CASE WHEN type = 'Income' THEN amount ELSE 0 END), 0),
			IFNULL(SUM(CASE WHEN type IN ('Expense', 'Savings') THEN amount ELSE 0 END), 0)
		FROM transactions
		WHERE user_id = ?`

	categorySumsSQL = `
		SELECT category, SUM(amount) AS total
		FROM transactions
		WHERE user_id = ? AND type = 'Expense' AND substr(date, 1, 7) = ?
		GROUP BY category
		ORDER BY total DESC, category ASC`

	transactionsInRangeSQL = `
		SELECT id, user_id, type, amount, category, date
		FROM transactions
		WHERE user_id = ? AND date BETWEEN ? AND ?`

	transactionsInRangeOrderSQL = ` ORDER BY date ASC, id ASC`

	dailyTotalsSQL = `
		SELECT
			date,
			SUM(CASE WHEN type = 'Income' THEN amount ELSE 0 END),
			SUM(CASE WHEN type = 'Expense' THEN amount ELSE 0 END),
			SUM(CASE WHEN type = 'Savings' THEN amount ELSE 0 END)
		FROM transactions
		WHERE user_id = ? AND substr(date, 1, 7) = ?
		GROUP BY date
		ORDER BY date`

	currencySQL = `SELECT IFNULL(currency, '') FROM profiles WHERE user_id = ?`

	getProfileSQL = `
		SELECT user_id, IFNULL(full_name, ''), IFNULL(email, ''), IFNULL(phone, ''),
		       IFNULL(address, ''), IFNULL(currency, '')
		FROM profiles
		WHERE user_id = ?`

	upsertProfileSQL = `
		INSERT INTO profiles (user_id, full_name, email, phone, address, currency)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			phone = excluded.phone,
			address = excluded.address,
			currency = excluded.currency`

	pendingExportSQL = `
		SELECT id FROM transactions
		WHERE exported_at IS NULL
		ORDER BY export_attempts, id
		LIMIT ?`

	exportFailedSQL = `UPDATE transactions SET export_attempts = export_attempts + 1 WHERE id = ?`

	exportRefSQL = `SELECT IFNULL(export_ref, '') FROM transactions WHERE id = ?`

	markExportedSQL = `
		UPDATE transactions
		SET exported_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now'), export_ref = ?
		WHERE id = ?`
)
