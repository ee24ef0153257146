package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"

	"github.com/escolaris/notas/core"
)

// dbErr classifies infrastructure failures: a dead connection cannot be
// retried at this layer, so it is turned into a shutdown request for the app.
// Everything else passes through untouched.
func dbErr(err error) error {
	switch err {
	case driver.ErrBadConn, sql.ErrConnDone:
		return core.NewShutdownError(err.Error())
	}
	return err
}
