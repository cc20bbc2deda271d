package queries

// The fact table drops before the dimensions its foreign keys reference.
var dropStatements = []Statement{
	{Name: "staging_events_drop", SQL: "DROP TABLE IF EXISTS staging_events"},
	{Name: "staging_songs_drop", SQL: "DROP TABLE IF EXISTS staging_songs"},
	{Name: "songplay_drop", SQL: "DROP TABLE IF EXISTS factSongplay"},
	{Name: "user_drop", SQL: "DROP TABLE IF EXISTS dimUser"},
	{Name: "song_drop", SQL: "DROP TABLE IF EXISTS dimSong"},
	{Name: "artist_drop", SQL: "DROP TABLE IF EXISTS dimArtist"},
	{Name: "time_drop", SQL: "DROP TABLE IF EXISTS dimTime"},
}

// Creates run dimensions before the fact table that references them.
var createStatements = []Statement{
	{Name: "staging_events_create", SQL: `CREATE TABLE IF NOT EXISTS staging_events (
    artist        varchar,
    auth          varchar,
    firstName     varchar,
    gender        varchar,
    itemInSession int,
    lastName      varchar,
    length        float,
    level         varchar,
    location      varchar,
    method        varchar,
    page          varchar,
    registration  bigint,
    sessionId     int,
    song          varchar,
    status        int,
    ts            bigint,
    userAgent     varchar,
    userId        int
)`},
	{Name: "staging_songs_create", SQL: `CREATE TABLE IF NOT EXISTS staging_songs (
    artist_id        varchar NOT NULL,
    artist_latitude  float,
    artist_location  varchar,
    artist_longitude float,
    artist_name      varchar NOT NULL,
    duration         float,
    num_songs        int,
    song_id          varchar NOT NULL,
    title            varchar NOT NULL,
    year             int
)`},
	{Name: "user_create", SQL: `CREATE TABLE IF NOT EXISTS dimUser (
    user_id    int PRIMARY KEY SORTKEY,
    first_name varchar,
    last_name  varchar,
    gender     varchar,
    level      varchar
) DISTSTYLE ALL`},
	{Name: "song_create", SQL: `CREATE TABLE IF NOT EXISTS dimSong (
    song_id   varchar PRIMARY KEY SORTKEY,
    title     varchar NOT NULL,
    artist_id varchar NOT NULL,
    year      int,
    duration  float
) DISTSTYLE ALL`},
	{Name: "artist_create", SQL: `CREATE TABLE IF NOT EXISTS dimArtist (
    artist_id varchar PRIMARY KEY SORTKEY,
    name      varchar NOT NULL,
    location  varchar,
    latitude  float,
    longitude float
) DISTSTYLE ALL`},
	{Name: "time_create", SQL: `CREATE TABLE IF NOT EXISTS dimTime (
    start_time timestamp PRIMARY KEY SORTKEY,
    hour       int NOT NULL,
    day        int NOT NULL,
    week       int NOT NULL,
    month      int NOT NULL,
    year       int NOT NULL,
    weekday    int NOT NULL
)`},
	{Name: "songplay_create", SQL: `CREATE TABLE IF NOT EXISTS factSongplay (
    songplay_id int IDENTITY(0,1) PRIMARY KEY,
    start_time  timestamp NOT NULL REFERENCES dimTime (start_time),
    user_id     int NOT NULL REFERENCES dimUser (user_id) SORTKEY,
    level       varchar,
    song_id     varchar REFERENCES dimSong (song_id),
    artist_id   varchar REFERENCES dimArtist (artist_id),
    session_id  int,
    location    varchar,
    user_agent  varchar NOT NULL
)`},
}

var copyStatements = []Statement{
	{Name: "staging_events_copy", SQL: `COPY staging_events FROM '{{quote .LogData}}'
CREDENTIALS 'aws_iam_role={{quote .RoleARN}}'
FORMAT AS JSON '{{quote .LogJSONPath}}'
COMPUPDATE OFF REGION '{{quote .Region}}'`},
	{Name: "staging_songs_copy", SQL: `COPY staging_songs FROM '{{quote .SongData}}'
CREDENTIALS 'aws_iam_role={{quote .RoleARN}}'
JSON 'auto'
COMPUPDATE OFF REGION '{{quote .Region}}'`},
}

// epoch converts staging_events.ts (epoch milliseconds) to a timestamp.
const epoch = `'1970-01-01'::date + ts/1000 * interval '1 second'`

// Dimensions load before the fact table.
var transformStatements = []Statement{
	{Name: "user_insert", SQL: `INSERT INTO dimUser (user_id, first_name, last_name, gender, level)
WITH latest AS (
    SELECT userId, firstName, lastName, gender, level,
           row_number() OVER (PARTITION BY userId ORDER BY ts DESC) AS rn
    FROM staging_events
    WHERE userId IS NOT NULL
)
SELECT userId, firstName, lastName, gender, level
FROM latest
WHERE rn = 1`},
	{Name: "song_insert", SQL: `INSERT INTO dimSong (song_id, title, artist_id, year, duration)
SELECT song_id, title, artist_id, year, duration
FROM staging_songs
WHERE song_id IS NOT NULL`},
	{Name: "artist_insert", SQL: `INSERT INTO dimArtist (artist_id, name, location, latitude, longitude)
WITH ranked AS (
    SELECT artist_id, artist_name, artist_location, artist_latitude, artist_longitude,
           row_number() OVER (PARTITION BY artist_id) AS rn
    FROM staging_songs
    WHERE artist_id IS NOT NULL
)
SELECT artist_id, artist_name, artist_location, artist_latitude, artist_longitude
FROM ranked
WHERE rn = 1`},
	{Name: "time_insert", SQL: `INSERT INTO dimTime (start_time, hour, day, week, month, year, weekday)
SELECT DISTINCT ` + epoch + ` AS start_time,
       EXTRACT(hour FROM ` + epoch + `),
       EXTRACT(day FROM ` + epoch + `),
       EXTRACT(week FROM ` + epoch + `),
       EXTRACT(month FROM ` + epoch + `),
       EXTRACT(year FROM ` + epoch + `),
       EXTRACT(weekday FROM ` + epoch + `)
FROM staging_events`},
	{Name: "songplay_insert", SQL: `INSERT INTO factSongplay (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
SELECT '1970-01-01'::date + e.ts/1000 * interval '1 second',
       e.userId, e.level, s.song_id, s.artist_id, e.sessionId, e.location, e.userAgent
FROM staging_events e
LEFT JOIN staging_songs s ON s.title = e.song
WHERE e.page = 'NextSong'`},
}
