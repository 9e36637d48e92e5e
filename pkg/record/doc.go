// Package record maps database tables to typed, queryable, persistable
// records.
//
// An EntityType is defined once at startup from the table's catalog entry:
//
//	people := record.MustDefine(ctx, pool, "Person",
//		record.WithRules(record.Presence("name"), record.Format("email", "email")))
//
// Define derives the table name ("people"), reads every column with its
// type, nullability and primary key, and fixes that shape for the life of
// the process. Records are built, validated and saved against it:
//
//	p, err := people.Build(map[string]any{"name": "Ada", "email": "ada@example.com"})
//	ok, err := p.Save(ctx)    // false, nil when validation fails; see p.Errors()
//	id, err := p.ToParam()
//
// Reads compose immutable queries:
//
//	adults, err := people.Query().
//		WhereOp("age", record.OpGe, 18).
//		Order("name", record.Asc).
//		Limit(10).
//		All(ctx)
//
// Every operation that touches the database acquires one connection from the
// types.Connector for its whole duration and releases it on every exit path.
// Errors follow the taxonomy in package types: schema problems surface from
// Define, attribute problems from Set/Assign/Build, and finder misses,
// unsaved records, pool exhaustion and rejected statements from the
// operation that hit them. Nothing is retried.
package record
