package postgres

// GetExchangeByName получает биржу и её активный аккаунт по имени
const GetExchangeByName = `SELECT e.ID, e.NAME, e.ACTIVE, e.BASE_URL, a.API_KEY, a.API_SECRET, a.PASSPHRASE, a.UID, COALESCE(a.SANDBOX, false)
FROM ct_system.EXCHANGE e
LEFT JOIN ct_system.EXCHANGE_ACCOUNT a ON a.EXCHANGE_ID = e.ID AND a.ACTIVE = true
WHERE LOWER(e.NAME) = LOWER($1) AND e.DELETED = false
LIMIT 1`

// GetActiveExchanges получает активные биржи с аккаунтами
const GetActiveExchanges = `SELECT e.ID, e.NAME, e.ACTIVE, e.BASE_URL, a.API_KEY, a.API_SECRET, a.PASSPHRASE, a.UID, COALESCE(a.SANDBOX, false)
FROM ct_system.EXCHANGE e
LEFT JOIN ct_system.EXCHANGE_ACCOUNT a ON a.EXCHANGE_ID = e.ID AND a.ACTIVE = true
WHERE e.ACTIVE = true AND e.DELETED = false
ORDER BY e.ID ASC`
