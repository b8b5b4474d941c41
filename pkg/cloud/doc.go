/*
Package cloud is the remote control gateway: a thin, typed adapter over the
cloud provider's imperative instance verbs (create, start, stop, delete,
describe, boot output).

The production implementation shells out to the gcloud CLI with JSON output,
but nothing above this package knows that: callers program against the
Gateway interface and the two-error taxonomy. A missing instance is always a
*NotFoundError, which the reconciler treats as drift to correct rather than
a crash; anything else provider-side is a *TransientError suitable for
bounded retry.
*/
package cloud
