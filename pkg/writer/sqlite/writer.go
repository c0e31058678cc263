// Package sqlite writes filtered spectra and their isotope envelope matches to
// a SQLite database.
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/isoscan/pkg/core"
	"github.com/ChrisMcGann/isoscan/pkg/fragment"
)

const (
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"
	// Date format for MaintenanceTable
	maintenanceDateFormat = "2006 01 02"

	schemaVersion = 1
)

// Writer handles writing spectra to SQLite database files
type Writer struct {
	db           *sql.DB
	outputPath   string
	description  string
	spectrumStmt *sql.Stmt
	matchStmt    *sql.Stmt
	spectra      int
	matches      int
}

// NewWriter creates a new SQLite writer
func NewWriter(outputPath, description string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:          db,
		outputPath:  outputPath,
		description: description,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS SpectrumTable (
		SpectrumId INTEGER PRIMARY KEY AUTOINCREMENT,
		ScanNumber INTEGER,
		NativeId TEXT,
		MsLevel INTEGER,
		Name TEXT,
		Sequence TEXT,
		Modifications TEXT,
		Charge INTEGER,
		PrecursorMz DOUBLE,
		NeutralMass DOUBLE,
		MassOffset DOUBLE,
		CompoundClass TEXT,
		CollisionEnergy DOUBLE,
		RetentionTime DOUBLE,
		FragmentationMode TEXT,
		TotalIonCurrent DOUBLE,
		PeakCount INTEGER,
		SourceFile TEXT,
		blobMass BLOB,
		blobIntensity BLOB
	);

	CREATE TABLE IF NOT EXISTS IsotopeMatchTable (
		MatchId INTEGER PRIMARY KEY AUTOINCREMENT,
		SpectrumId INTEGER REFERENCES SpectrumTable(SpectrumId),
		Label TEXT,
		Charge INTEGER,
		MonoisotopicMass DOUBLE,
		MonoMz DOUBLE,
		Contains BOOL,
		Correlation DOUBLE,
		Fit DOUBLE,
		Cosine DOUBLE
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		LastModifiedDate TEXT,
		Description TEXT,
		SpectrumCount INTEGER,
		MatchCount INTEGER
	);

	CREATE TABLE IF NOT EXISTS MaintenanceTable (
		CreationDate TEXT,
		NoofSpectraWritten INTEGER,
		Description TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.spectrumStmt, err = w.db.Prepare(`
		INSERT INTO SpectrumTable (
			ScanNumber, NativeId, MsLevel, Name, Sequence, Modifications,
			Charge, PrecursorMz, NeutralMass, MassOffset, CompoundClass,
			CollisionEnergy, RetentionTime, FragmentationMode, TotalIonCurrent,
			PeakCount, SourceFile, blobMass, blobIntensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare spectrum statement: %w", err)
	}

	w.matchStmt, err = w.db.Prepare(`
		INSERT INTO IsotopeMatchTable (
			SpectrumId, Label, Charge, MonoisotopicMass, MonoMz,
			Contains, Correlation, Fit, Cosine
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare match statement: %w", err)
	}

	return nil
}

// WriteSpectrum writes a single spectrum and returns its SpectrumId. Peaks
// must be sorted by m/z.
func (w *Writer) WriteSpectrum(spec *core.Spectrum) (int64, error) {
	if !spec.ArePeaksSorted() {
		return 0, fmt.Errorf("spectrum %s: peaks must be sorted by m/z", spec.Name())
	}

	var (
		sequence, mods, compoundClass, fragMode string
		charge                                  int
		precursorMz, neutralMass, massOffset    float64
		rt, ce                                  interface{}
	)
	if spec.Product != nil {
		p := spec.Product.Precursor
		sequence = p.Sequence
		mods = core.ModString(p.Modifications)
		compoundClass = p.CompoundClass
		fragMode = spec.Product.ActivationMethod.String()
		charge = p.Charge
		precursorMz = p.MZ
		massOffset = p.MassOffset
		if sequence != "" {
			neutralMass = core.CalculateNeutralMass(sequence, p.Modifications) + massOffset
		}
		if p.RetentionTime != nil {
			rt = *p.RetentionTime
		}
		if p.CollisionEnergy != nil {
			ce = *p.CollisionEnergy
		}
	}

	res, err := w.spectrumStmt.Exec(
		spec.ScanNum,
		spec.NativeID,
		spec.MsLevel,
		spec.Name(),
		sequence,
		mods,
		charge,
		precursorMz,
		neutralMass,
		massOffset,
		compoundClass,
		ce,
		rt,
		fragMode,
		spec.TotalIonCurrent,
		len(spec.Peaks),
		spec.SourceFile,
		EncodeFloat64s(spec.Peaks, true),
		EncodeFloat64s(spec.Peaks, false),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert spectrum %s: %w", spec.Name(), err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read spectrum id: %w", err)
	}
	w.spectra++
	return id, nil
}

// WriteMatches stores the fragment matches of the spectrum with the given id.
func (w *Writer) WriteMatches(spectrumID int64, matches []fragment.Match) error {
	for _, m := range matches {
		_, err := w.matchStmt.Exec(
			spectrumID,
			m.Label,
			m.Ion.Charge,
			m.Ion.MonoisotopicMass,
			m.Ion.MonoMz(),
			m.Contains,
			m.Scores.Correlation,
			m.Scores.Fit,
			m.Scores.Cosine,
		)
		if err != nil {
			return fmt.Errorf("failed to insert match %s for spectrum %d: %w", m.Label, spectrumID, err)
		}
		w.matches++
	}
	return nil
}

// SpectrumCount returns the number of spectra written so far.
func (w *Writer) SpectrumCount() int {
	return w.spectra
}

// EncodeFloat64s encodes the m/z (mz true) or intensity values of peaks as a
// little-endian float64 blob.
func EncodeFloat64s(peaks []core.Peak, mz bool) []byte {
	buf := make([]byte, len(peaks)*8)
	for i, peak := range peaks {
		value := peak.Intensity
		if mz {
			value = peak.MZ
		}
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(value))
	}
	return buf
}

// DecodeFloat64s is the inverse of EncodeFloat64s.
func DecodeFloat64s(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(blob))
	}
	out := make([]float64, len(blob)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return out, nil
}

// Finalize writes the header and maintenance tables and closes the database
func (w *Writer) Finalize() error {
	if w.db == nil {
		return fmt.Errorf("database %s is already closed", w.outputPath)
	}
	now := time.Now()

	_, err := w.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, LastModifiedDate, Description, SpectrumCount, MatchCount)
		VALUES (?, ?, ?, ?, ?, ?)
	`, schemaVersion, now.Format(headerDateFormat), now.Format(headerDateFormat), w.description, w.spectra, w.matches)
	if err != nil {
		return fmt.Errorf("failed to insert header: %w", err)
	}

	_, err = w.db.Exec(`
		INSERT INTO MaintenanceTable (CreationDate, NoofSpectraWritten, Description)
		VALUES (?, ?, ?)
	`, now.Format(maintenanceDateFormat), w.spectra, w.description)
	if err != nil {
		return fmt.Errorf("failed to insert maintenance: %w", err)
	}

	return w.Close()
}

// Close releases statements and the database without writing the header.
func (w *Writer) Close() error {
	if w.spectrumStmt != nil {
		w.spectrumStmt.Close()
		w.spectrumStmt = nil
	}
	if w.matchStmt != nil {
		w.matchStmt.Close()
		w.matchStmt = nil
	}
	if w.db == nil {
		return nil
	}

	err := w.db.Close()
	w.db = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
