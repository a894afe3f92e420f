package s3xfer

// transferPlan partitions a byte range into jobs and parts. Plans form a
// strict tree: plan → job slices → parts.
type transferPlan struct {
	totalSize   int64
	jobs        int
	partsPerJob int
	chunkSize   int64
}

// jobSlice is the contiguous byte range one worker owns. The worker
// subdivides it into at most partsPerJob sequential parts of partSize
// bytes, the last one possibly smaller.
type jobSlice struct {
	jobID     int
	offset    int64 // byte offset of the slice within the transfer
	size      int64 // slice length in bytes
	partSize  int64
	firstPart int // 1-based number of the slice's first part
}

// partRange is one unit of transfer work.
type partRange struct {
	number int   // 1-based part number
	begin  int64 // byte offset within the transfer
	size   int64
}

// newTransferPlan derives the partitioning: numParts = jobs × partsPerJob,
// chunkSize = ⌈totalSize / numParts⌉, job j covering bytes
// [j·chunkSize·partsPerJob, min((j+1)·chunkSize·partsPerJob, totalSize)).
func newTransferPlan(totalSize int64, jobs, partsPerJob int) transferPlan {
	numParts := int64(jobs) * int64(partsPerJob)
	return transferPlan{
		totalSize:   totalSize,
		jobs:        jobs,
		partsPerJob: partsPerJob,
		chunkSize:   (totalSize + numParts - 1) / numParts,
	}
}

// numParts returns the planned part count.
func (p transferPlan) numParts() int { return p.jobs * p.partsPerJob }

// singlePart reports whether the whole transfer fits one part, allowing
// the engine to bypass multipart when only one job is configured.
func (p transferPlan) singlePart() bool {
	return p.jobs == 1 && p.totalSize <= p.chunkSize
}

// slices returns the per-job work assignments. Jobs whose byte range is
// empty (rounding overshoot on small inputs) are omitted.
func (p transferPlan) slices() (out []jobSlice) {
	jobBytes := p.chunkSize * int64(p.partsPerJob)
	out = make([]jobSlice, 0, p.jobs)
	for j := 0; j < p.jobs; j++ {
		offset := int64(j) * jobBytes
		if offset >= p.totalSize {
			break
		}
		size := min(jobBytes, p.totalSize-offset)
		partSize := (size + int64(p.partsPerJob) - 1) / int64(p.partsPerJob)
		out = append(out, jobSlice{
			jobID:     j,
			offset:    offset,
			size:      size,
			partSize:  partSize,
			firstPart: j*p.partsPerJob + 1,
		})
	}
	return
}

// parts returns the slice's work units in upload order.
func (s jobSlice) parts() (out []partRange) {
	out = make([]partRange, 0, (s.size+s.partSize-1)/s.partSize)
	for i := int64(0); i*s.partSize < s.size; i++ {
		out = append(out, partRange{
			number: s.firstPart + int(i),
			begin:  s.offset + i*s.partSize,
			size:   min(s.partSize, s.size-i*s.partSize),
		})
	}
	return
}
