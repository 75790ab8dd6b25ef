package topology

import "strconv"

// Shard holds the connection parameters of a single database shard.
// Values are copied out of the topology, so callers cannot mutate the layout.
type Shard struct {
	// Host specifies the database server hostname or IP address
	Host string `yaml:"host"`

	// Port specifies the TCP port on which the database server is listening
	Port int `yaml:"port"`

	// Username specifies the database username for authentication
	Username string `yaml:"username"`

	// Password specifies the database user password for authentication
	Password string `yaml:"password"`

	// Database specifies the name of the schema to connect to
	Database string `yaml:"database"`
}

// Address returns host:port for the shard.
func (s Shard) Address() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// Map is the raw nested layout: environment -> category -> zone -> shard name -> Shard.
type Map map[string]map[string]map[string]map[string]Shard
