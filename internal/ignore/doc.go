// Implements marker-file driven filtering for recipe directories.
//
// A recipe directory may carry up to three dot-prefixed marker files:
// two exclude markers (a legacy name and a current name) whose lines are
// exclusion patterns, and an include marker whose lines form an explicit
// allow-list. Patterns use .dockerignore glob syntax, including "**" and
// "!" negation. When no marker file is present the directory is packaged
// as-is.
//
// Example usage:
//
//	rules, err := ignore.Load(dir)
//	if err != nil {
//	    return err
//	}
//	ok, err := rules.Match("logs/app.log")
package ignore
