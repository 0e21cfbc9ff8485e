package catalog

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gridironlabs/draftroom/internal/models"
)

// LoadSQLite reads the player table out of a local SQLite catalog file.
// Schema: players(id TEXT, name TEXT, position TEXT, team TEXT,
// bye_week INTEGER, adp REAL NULL).
func LoadSQLite(path string) ([]models.Player, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT id, name, position, team, bye_week, adp FROM players ORDER BY adp IS NULL, adp`)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var (
			idStr string
			p     models.Player
			adp   sql.NullFloat64
		)
		if err := rows.Scan(&idStr, &p.Name, (*string)(&p.Position), &p.Team, &p.ByeWeek, &adp); err != nil {
			return nil, fmt.Errorf("scan player row: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("player %q: invalid id %q: %w", p.Name, idStr, err)
		}
		p.ID = id
		if adp.Valid {
			v := adp.Float64
			p.ADP = &v
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read players: %w", err)
	}
	return players, nil
}

// LoadCSV reads a projection export with a header row of at least
// name,position,team,bye,adp. Rows without an ADP value keep a nil ADP.
// IDs are derived deterministically from name+team so repeated loads of the
// same file agree.
func LoadCSV(r io.Reader) ([]models.Player, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"name", "position", "team"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("catalog csv missing %q column", required)
		}
	}

	var players []models.Player
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog row: %w", err)
		}

		p := models.Player{
			Name:     strings.TrimSpace(rec[col["name"]]),
			Position: models.Position(strings.ToUpper(strings.TrimSpace(rec[col["position"]]))),
			Team:     strings.ToUpper(strings.TrimSpace(rec[col["team"]])),
		}
		if p.Name == "" {
			continue
		}
		if i, ok := col["bye"]; ok && i < len(rec) {
			if bye, err := strconv.Atoi(strings.TrimSpace(rec[i])); err == nil {
				p.ByeWeek = bye
			}
		}
		if i, ok := col["adp"]; ok && i < len(rec) {
			if adp, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64); err == nil {
				v := adp
				p.ADP = &v
			}
		}
		p.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(p.Name+"|"+p.Team))
		players = append(players, p)
	}
	return players, nil
}
