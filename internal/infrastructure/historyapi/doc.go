// Package historyapi is a client for the external sensor history service.
//
// The service exposes two endpoints:
//
//	POST {base}/api/Sensor/AddSensorData
//	GET  {base}/api/Sensor/GetAllData
//
// Both use the same record shape:
//
//	{"id":0,"sensorType":"Humidity","sensorReading":"41.20","dateCreated":"2026-03-01T10:15:00.000Z"}
//
// sensorReading is written as a string with two decimals. On read it may be
// a string or a number, and dateCreated may lack a zone designator, in which
// case it is taken as UTC.
package historyapi
