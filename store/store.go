package store

import (
	"errors"
	"strings"
)

// Table names of the shared workbook.
const (
	TableUsers       = "Usuarios"
	TableStudents    = "Estudiantes"
	TableGuardians   = "Encargados"
	TableAssignments = "CargaAcademica"
	TableSubjects    = "Materias"
	TableSections    = "Secciones"
	TableEvaluations = "Evaluaciones"
	TableGrades      = "Calificaciones"
)

// DefaultHeaders holds the header row of every table the backend bootstraps.
var DefaultHeaders = map[string][]string{
	TableUsers:     {"Email", "Nombre", "Rol", "Acceso"},
	TableStudents:  {"Cédula", "Primer apellido", "Segundo apellido", "Nombre", "Nacionalidad", "Sexo", "Fecha de nacimiento", "Sección", "Encargado ID", "Teléfono"},
	TableGuardians: {"ID", "Nombre", "Correo", "Teléfono"},
	TableAssignments: {"Email", "id_materia", "id_seccion", "TipoAsignacion", "Ciclo"},
	TableSubjects:  {"id_materia", "codigo", "nombre"},
	TableSections:  {"id_seccion", "Nivel", "Grupo", "Subgrupo"},
	TableEvaluations: {"id_evaluacion", "id_materia", "id_clase", "id_seccion", "id_tipo_evaluacion", "Fecha", "TipoEvaluacionLabel", "PorcentajePonderado", "Descripcion", "CreadoPorEmail", "Ciclo", "Activo", "creadoEn"},
	TableGrades:    {"id_calificacion", "id_evaluacion", "Cedula", "Nombre", "Nota", "Observaciones", "FechaCalificacion", "CalificadoPorEmail"},
}

var (
	ErrTableNotFound  = errors.New("table not found")
	ErrRowOutOfRange  = errors.New("row out of range")
	ErrColumnNotFound = errors.New("column not found")
)

// Row is one data record of a table. Num is the 1-based physical row number;
// row 1 is always the header, so data rows start at 2.
type Row struct {
	Num    int
	Values map[string]string
}

// Get returns the trimmed value of a column, empty when absent.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r.Values[column])
}

// TabularStore is the whole contract the domain services get: no uniqueness,
// no foreign keys, no transactions. Column resolution for SetCell is by
// case-sensitive header name, looked up fresh on every call.
type TabularStore interface {
	// ReadAll returns the data rows of a table in physical order.
	ReadAll(table string) ([]Row, error)
	// AppendRow appends values positionally, in header order.
	AppendRow(table string, values []string) error
	// SetCell overwrites one cell of one data row.
	SetCell(table string, rowNum int, column string, value string) error
	// DeleteRow removes a data row; rows below it shift up by one.
	DeleteRow(table string, rowNum int) error
	// CreateTable creates the table with the given header when it does not
	// exist yet. Existing tables are left untouched.
	CreateTable(table string, header []string) error
}

func columnIndex(header []string, column string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == column {
			return i
		}
	}
	return -1
}

// padCells extends cells with empty strings up to width, so a positional
// write past the current row length never leaves a gap.
func padCells(cells []string, width int) []string {
	for len(cells) < width {
		cells = append(cells, "")
	}
	return cells
}

func rowFromCells(header, cells []string, num int) Row {
	values := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(cells) {
			values[strings.TrimSpace(h)] = cells[i]
		} else {
			values[strings.TrimSpace(h)] = ""
		}
	}
	return Row{Num: num, Values: values}
}
