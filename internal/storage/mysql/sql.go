package mysql

// Upsert keeps created_at from the first insert; updated_at always moves.
const upsertUserSQL = `
INSERT INTO users
  (id, email, first_name, last_name, profile_image_url, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  email             = VALUES(email),
  first_name        = VALUES(first_name),
  last_name         = VALUES(last_name),
  profile_image_url = VALUES(profile_image_url),
  updated_at        = VALUES(updated_at)
`

const getUserSQL = `
SELECT id, email, first_name, last_name, profile_image_url, created_at, updated_at
FROM users
WHERE id = ?
`

const insertHotelSQL = `
INSERT INTO hotels (name, location, latitude, longitude, created_at)
VALUES (?, ?, ?, ?, ?)
`

const insertReviewSQL = "INSERT INTO reviews\n  (user_id, hotel_id, rating, comment, video_url, created_at, likes, comments)\nVALUES (?, ?, ?, ?, ?, ?, 0, 0)"

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const hotelColumns = "id, name, location, latitude, longitude, created_at"

const listHotelsSQL = `SELECT ` + hotelColumns + ` FROM hotels ORDER BY id`

const getHotelSQL = `SELECT ` + hotelColumns + ` FROM hotels WHERE id = ?`

// Oldest match wins so repeated lookups are stable even if a duplicate slipped in.
// Case-insensitive but accent-sensitive, like strings.EqualFold.
const findHotelSQL = `
SELECT ` + hotelColumns + `
FROM hotels
WHERE name COLLATE utf8mb4_0900_as_ci = ? AND location COLLATE utf8mb4_0900_as_ci = ?
ORDER BY id
LIMIT 1
`

const listReviewsSQL = `
SELECT id, user_id, hotel_id, rating, comment, video_url, created_at, likes, comments
FROM reviews
ORDER BY id
`
