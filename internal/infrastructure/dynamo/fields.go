package dynamo

// DynamoDB attribute names used in keys, indexes and update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEmailKey  = "email_key"
	fieldCreatedAt = "created_at"
	fieldTTL       = "ttl"
	fieldSellerID  = "seller_id"
	fieldEmail     = "email"
	fieldOwnerID   = "owner_id"

	emailGuardPrefix = "email#"

	indexSellerEmail = "email-index"
)
