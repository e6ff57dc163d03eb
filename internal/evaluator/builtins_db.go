package evaluator

import (
	"database/sql"
	"fmt"
	"mote/internal/object"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Database handles are per-run. Scripts open a connection with
// dbOpen, pass the returned handle to dbQuery/dbExec, and either
// dbClose it or let run cleanup reclaim it.

var supportedDrivers = map[string]string{
	"sqlite":   "sqlite3",
	"sqlite3":  "sqlite3",
	"mysql":    "mysql",
	"postgres": "postgres",
	"pq":       "postgres",
}

type dbState struct {
	conns  map[string]*sql.DB
	nextID int
}

func registerDBBuiltins(e *Evaluator, add func(string, object.BuiltinFunction)) {
	state := &dbState{conns: map[string]*sql.DB{}}
	e.cleanup = append(e.cleanup, state.closeAll)

	add("dbOpen", func(args ...object.Object) object.Object {
		driver, err := strArg("dbOpen", args, 0)
		if err != nil {
			return err
		}
		dsn, err := strArg("dbOpen", args, 1)
		if err != nil {
			return err
		}
		name, ok := supportedDrivers[strings.ToLower(driver)]
		if !ok {
			return newError("dbOpen: unsupported driver %q", driver)
		}
		db, oerr := sql.Open(name, dsn)
		if oerr != nil {
			return newError("dbOpen: %s", oerr)
		}
		if perr := db.Ping(); perr != nil {
			db.Close()
			return newError("dbOpen: %s", perr)
		}
		state.nextID++
		handle := fmt.Sprintf("db:%d", state.nextID)
		state.conns[handle] = db
		return str(handle)
	})

	add("dbQuery", func(args ...object.Object) object.Object {
		db, qtext, params, errObj := state.resolve("dbQuery", args)
		if errObj != nil {
			return errObj
		}
		rows, qerr := db.Query(qtext, params...)
		if qerr != nil {
			return newError("dbQuery: %s", qerr)
		}
		defer rows.Close()

		cols, cerr := rows.Columns()
		if cerr != nil {
			return newError("dbQuery: %s", cerr)
		}
		var out []object.Object
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if serr := rows.Scan(ptrs...); serr != nil {
				return newError("dbQuery: %s", serr)
			}
			row := object.NewMap()
			for i, col := range cols {
				row.Set(col, object.FromNative(normalizeSQL(values[i])))
			}
			out = append(out, row)
		}
		if rerr := rows.Err(); rerr != nil {
			return newError("dbQuery: %s", rerr)
		}
		return &object.Array{Elements: out}
	})

	add("dbExec", func(args ...object.Object) object.Object {
		db, qtext, params, errObj := state.resolve("dbExec", args)
		if errObj != nil {
			return errObj
		}
		result, xerr := db.Exec(qtext, params...)
		if xerr != nil {
			return newError("dbExec: %s", xerr)
		}
		affected, _ := result.RowsAffected()
		return num(float64(affected))
	})

	add("dbClose", func(args ...object.Object) object.Object {
		handle, err := strArg("dbClose", args, 0)
		if err != nil {
			return err
		}
		db, ok := state.conns[handle]
		if !ok {
			return newError("dbClose: unknown handle %q", handle)
		}
		delete(state.conns, handle)
		if cerr := db.Close(); cerr != nil {
			return newError("dbClose: %s", cerr)
		}
		return NULL
	})
}

func (s *dbState) resolve(name string, args []object.Object) (*sql.DB, string, []any, object.Object) {
	handle, err := strArg(name, args, 0)
	if err != nil {
		return nil, "", nil, err
	}
	qtext, err := strArg(name, args, 1)
	if err != nil {
		return nil, "", nil, err
	}
	db, ok := s.conns[handle]
	if !ok {
		return nil, "", nil, newError("%s: unknown handle %q", name, handle)
	}
	params := make([]any, 0, len(args)-2)
	for _, a := range args[2:] {
		params = append(params, object.ToNative(a))
	}
	return db, qtext, params, nil
}

func (s *dbState) closeAll() {
	for handle, db := range s.conns {
		db.Close()
		delete(s.conns, handle)
	}
}

// drivers hand back []byte for text columns and int64 for integers
func normalizeSQL(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case int64:
		return float64(v)
	default:
		return v
	}
}
