package index

var (
	bPages = []byte("pages") // slug -> pageBytes
	bAlias = []byte("alias") // legacy path -> slug
	bOrder = []byte("order") // timeSlugKey -> slug
	bTag   = []byte("tag")   // tag -> sub-bucket of timeSlugKey
	bBuild = []byte("build") // build bookkeeping

	kFingerprint = []byte("fingerprint")
)
