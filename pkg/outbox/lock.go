package outbox

import "gorm.io/gorm/clause"

func lockForPublish() clause.Locking {
	return clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}
}
