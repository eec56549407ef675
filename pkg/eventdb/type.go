package eventdb

type EventDbRow struct {
	Id           int64  `db:"id"`
	SessionID    string `db:"session_id"`
	Seq          int64  `db:"seq"`
	ControllerID string `db:"controller_id"`
	Payload      string `db:"payload"`
	Timestamp    string `db:"timestamp"`
	PersistedAt  int64  `db:"persisted_at"`
}
