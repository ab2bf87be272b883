// Package graph provides the backend-agnostic graph query layer: a typed
// value model, a projection-shape parser, an immutable query builder, and
// the executor interface hierarchy backends implement.
//
// # Architecture
//
// The package follows a clean interface-based design:
//
//   - QueryExecutor: the one operation every backend supports
//   - StatementExecutor: optional capability for backend-native statements
//   - Client: pooled connections plus explicit transactions
//   - Transaction: a scoped unit of work owning one connection
//   - MockClient: scripted in-memory implementation for unit testing
//
// Concrete backends live in subpackages: age (PostgreSQL + Apache AGE)
// and neo4j.
//
// # Usage
//
//	q := graph.NewQuery("MATCH (e:Entity {id: $id}) RETURN e").
//		Bind("id", "01J9ZD3V7Q")
//
//	rows, err := client.Query(ctx, q)
//	if err != nil {
//	    return err
//	}
//	records, err := graph.CollectRows(rows)
//
// Parameters are bound by name and delivered to the backend out-of-band;
// no value is ever spliced into query text.
//
// # Result shapes
//
// ShapeOf parses a query's RETURN clause once per distinct text and
// predicts, per column, whether it carries a scalar, node, relationship
// or path. Backends whose wire format does not self-describe (Apache AGE)
// decode rows against that prediction and fail loudly on mismatch.
package graph
