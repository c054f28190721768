package mysql

// GetExchangeByName - биржа и её активный аккаунт по имени (без учёта регистра)
const GetExchangeByName = `
			SELECT
				e.ID,
				e.NAME,
				e.ACTIVE,
				e.BASE_URL,
				a.API_KEY,
				a.API_SECRET,
				a.PASSPHRASE,
				a.UID,
				COALESCE(a.SANDBOX, 0)
			FROM
				EXCHANGE e
			LEFT JOIN EXCHANGE_ACCOUNT a
				ON a.EXCHANGE_ID = e.ID AND a.ACTIVE = 1
			WHERE
				LOWER(e.NAME) = LOWER(?)
				AND e.DELETED = 0
			LIMIT 1`

// GetActiveExchanges - все активные биржи с аккаунтами
const GetActiveExchanges = `
			SELECT
				e.ID,
				e.NAME,
				e.ACTIVE,
				e.BASE_URL,
				a.API_KEY,
				a.API_SECRET,
				a.PASSPHRASE,
				a.UID,
				COALESCE(a.SANDBOX, 0)
			FROM
				EXCHANGE e
			LEFT JOIN EXCHANGE_ACCOUNT a
				ON a.EXCHANGE_ID = e.ID AND a.ACTIVE = 1
			WHERE
				e.ACTIVE = 1
				AND e.DELETED = 0
			ORDER BY
				e.ID ASC`
