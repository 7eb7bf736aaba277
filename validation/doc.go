// Package validation validates and sanitizes externally supplied input before it
// reaches the document store or an authentication call.
//
// Every function in this package is pure and total: the same input always
// produces the same result, no I/O is performed, and a failure never returns a
// partially sanitized value. Failures are reported as *ValidationError carrying
// the offending field name and a human-readable message, and match
// ErrValidationFailed with errors.Is.
//
// # Injection Boundary
//
// Field names, document ids and collection paths are the injection-prevention
// boundary for the document store:
//
//   - Field names are restricted to [A-Za-z0-9_]+ and at most 1500 characters
//   - Document ids must not contain "/", must not be "." or "..", and are at
//     most 1500 characters
//   - Collection paths have an odd number of "/"-delimited segments that
//     alternate collection name and document id
//
// # Domain Values
//
// LocalNumber, Classification and Wage are validated value objects. They can
// only be obtained from ValidateLocalNumber, ParseClassification and
// ValidateWage.
//
// # Usage
//
//	v, err := validation.New(validation.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//
//	email, err := v.SanitizeEmail(input.Email)
//	if err != nil {
//	    var verr *validation.ValidationError
//	    errors.As(err, &verr) // verr.Field == "email"
//	    return err
//	}
//
// The package-level functions use a validator built from DefaultConfig.
package validation
