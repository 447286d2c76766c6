// Package fixture parses conformance fixtures for an ownership/borrow analyzer.
//
// A fixture file is ordinary source text in the analyzed language. Test cases
// and their expectations live in line comments, so the file stays a valid
// program and the parser never needs to understand the language grammar.
//
// # Case headers
//
// A header comment starts a case and names it:
//
//	// ==== E0382: used after move (done) ====
//
// The case span runs from the header to the line before the next header, the
// next terminator, or the end of the file. A terminator is a header with no
// code:
//
//	// ==========
//
// The parenthesized status is one of easy, started, done or all. A trailing
// question mark ("(easy?)") marks the status as tentative. A header whose
// parenthesized text is not a status keeps that text in its title and gets
// status started.
//
// # Expectation markers
//
// Markers assert that the analyzer reports a diagnostic on a given line:
//
//	let _y = x;
//	x.s = 6;
//	//~ ERROR assign to part of moved value
//
//	drop(y); //~ ERROR cannot move out
//
//	    *lock.lock().unwrap() = &z;
//	}
//	//~^^ ERROR `z` does not live long enough
//	//~| NOTE borrowed value does not live long enough
//
// A marker on its own line applies to the line above it. A marker that
// trails code applies to that same line. Each ^ moves the target one line
// further up. A | targets the same line as the marker before it.
//
// Consecutive marker lines form a chain. Every marker in a chain counts its
// carets from the first marker of the chain, so several diagnostics can be
// asserted against one line:
//
//	v.push(1);
//	//~ ERROR cannot borrow `v` as mutable more than once
//	//~ NOTE first mutable borrow occurs here
//
// The severity keyword (ERROR, WARN, WARNING, NOTE, HELP) is optional and
// must be upper case. The rest of the marker is a case-sensitive substring
// of the expected message, or a regular expression when wrapped in slashes
// ("/moved value: `\w+`/").
//
// # Errors
//
// Parse returns a *ParseError for every problem in a file, joined with
// errors.Join. A file with any error yields no cases: a marker outside any
// case, an offset that leaves the case span, a case with no markers, and a
// category code repeated in the same file are all fatal to that file.
package fixture
