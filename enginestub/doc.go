// SPDX-License-Identifier: GPL-3.0-or-later

// Package enginestub provides function-field stubs of the
// [serversock.Engine] and [serversock.Endpoint] interfaces.
//
// Each method of a stub calls the corresponding Func field, which must be
// set by the test: calling a method whose field is nil panics, which makes
// unexpected engine interactions fail loudly.
package enginestub
