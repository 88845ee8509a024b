// Package emit exports a FinderSolution into the shake-map product files
// named in the engine's external contract, archives them, and sends the
// processing notification email. The shake-map command invocation itself
// and the SMTP relay are external collaborators; this package only
// produces the files and argv/message shapes they consume.
package emit
