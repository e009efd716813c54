/*

Package base provides the error taxonomy and the random generator shared by mofuse.

The base package includes:

* Error Kinds (validation, degenerate partition, numeric instability)

* Seeded Random Generator

Logging lives in base/log and progress tracking in base/progress.

*/
package base
