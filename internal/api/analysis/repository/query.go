package analysisRepository

const queryCreateAnalysis = `
INSERT INTO analysis_records (
	id,
	source,
	source_key,
	image_width,
	image_height,
	method,
	window_size,
	original_format,
	total_detections,
	duration_ms,
	created_at
) VALUES (
	:id,
	:source,
	:source_key,
	:image_width,
	:image_height,
	:method,
	:window_size,
	:original_format,
	:total_detections,
	:duration_ms,
	:created_at
)`

const queryGetAnalysisByID = `
SELECT id,
	source,
	source_key,
	image_width,
	image_height,
	method,
	window_size,
	original_format,
	total_detections,
	duration_ms,
	created_at
FROM analysis_records
WHERE id = $1`

const queryGetRecentAnalyses = `
SELECT id,
	source,
	source_key,
	image_width,
	image_height,
	method,
	window_size,
	original_format,
	total_detections,
	duration_ms,
	created_at
FROM analysis_records
ORDER BY created_at DESC
LIMIT $1`
