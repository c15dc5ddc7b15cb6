// Package greenhouse defines the shared data model of the greenhouse
// controller: sensor readings, actuator state, bus connectivity, the typed
// events decoded from bus traffic and the commands sent back to devices.
//
// The package has no dependencies beyond the standard library so that every
// other package (codecs, router, reconciler, history, API) can share it
// without import cycles.
//
// # Ownership
//
//   - Reading values are immutable once constructed and are passed by value.
//   - ActuatorState is owned by the reconciler; consumers receive copies
//     through Snapshot.
//   - Events and Commands are transient values that live for one dispatch.
package greenhouse
