// Package batch manages a durable queue of playlist jobs. The queue lives in
// a single JSON file that is rewritten atomically after every state change,
// so a run interrupted at any point resumes from the first unprocessed job.
package batch
