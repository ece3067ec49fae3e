// Package textutil provides small text helpers shared by the extractor and
// the output stages.
//
// The primary use cases are:
//   - Folding accented letters so names compare on their base characters
//   - Classifying tokens as upper-case words for name-run detection
//   - Sanitizing filenames before they are written to disk
package textutil
