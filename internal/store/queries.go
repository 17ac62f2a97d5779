package store

// Scan queries
const (
	queryMarkScanSynced = `
		UPDATE scans
		SET remote_id = ?, is_synced = 1, updated_at = ?
		WHERE id = ?`

	queryScanStats = `
		SELECT campaign_id, COUNT(*), COALESCE(SUM(is_synced), 0)
		FROM scans
		GROUP BY campaign_id
		ORDER BY campaign_id`
)

// History queries
const (
	queryEvictHistory = `
		DELETE FROM scan_history
		WHERE seq NOT IN (
			SELECT seq FROM scan_history ORDER BY seq DESC LIMIT ?
		)`

	queryClearHistory = `DELETE FROM scan_history`
)

// Metadata queries
const (
	queryGetMetadata = `SELECT value FROM metadata WHERE key = ?`

	queryUpsertMetadata = `
		INSERT INTO metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`

	queryDeleteMetadata = `DELETE FROM metadata WHERE key = ?`
)

// Catalog queries
const (
	queryDeleteCampaigns = `DELETE FROM campaigns`

	queryInsertCampaign = `
		INSERT INTO campaigns (id, name, starts_at, ends_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	queryListCampaigns = `
		SELECT id, name, starts_at, ends_at
		FROM campaigns
		ORDER BY name, id`

	queryDeleteGroupLocations = `
		DELETE FROM group_locations
		WHERE group_id IN (SELECT id FROM "groups" WHERE campaign_id = ?)`

	queryDeleteGroups = `DELETE FROM "groups" WHERE campaign_id = ?`

	queryInsertGroup = `
		INSERT INTO "groups" (id, campaign_id, name, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			campaign_id = excluded.campaign_id,
			name = excluded.name,
			updated_at = excluded.updated_at`

	queryInsertGroupLocation = `
		INSERT OR IGNORE INTO group_locations (group_id, location_id)
		VALUES (?, ?)`

	queryListGroups = `
		SELECT g.id, g.campaign_id, g.name, gl.location_id
		FROM "groups" g
		LEFT JOIN group_locations gl ON gl.group_id = g.id
		WHERE g.campaign_id = ?
		ORDER BY g.name, g.id, gl.location_id`

	queryUpsertLocation = `
		INSERT INTO locations (id, name, code, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			code = excluded.code,
			updated_at = excluded.updated_at`

	queryDeleteArticleLocations = `DELETE FROM article_locations`

	queryDeleteArticles = `DELETE FROM articles`

	queryInsertArticle = `
		INSERT INTO articles (id, code, barcode, description, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	queryInsertArticleLocation = `
		INSERT OR IGNORE INTO article_locations (article_id, location_id)
		VALUES (?, ?)`

	queryFindArticle = `
		SELECT a.id, a.code, a.barcode, a.description, al.location_id
		FROM articles a
		LEFT JOIN article_locations al ON al.article_id = a.id
		WHERE a.id = (
			SELECT id FROM articles
			WHERE code = ? OR barcode = ?
			ORDER BY CASE WHEN code = ? THEN 0 ELSE 1 END, id
			LIMIT 1
		)
		ORDER BY al.location_id`
)
