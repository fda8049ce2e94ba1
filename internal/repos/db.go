package repos

import (
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"makiti/internal/domain"
	applog "makiti/internal/log"
)

// OpenDB opens the sqlite store and applies the schema. Demo users, shops and
// products are seeded when seed is true; seeding is idempotent.
func OpenDB(dsn string, seed bool) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: sqlite serialises writers anyway and ":memory:" is per connection.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	if seed {
		if err := seedUsers(db); err != nil {
			return nil, err
		}
		if err := seedCatalog(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func now() string { return domain.Stamp(time.Now()) }

func ensureSchema(db *sqlx.DB) error {
	schema := `
-- Users (owned by the identity service; the core writes rating fields only)
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  full_name TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL CHECK (role IN ('customer','seller','admin')),
  average_rating REAL NOT NULL DEFAULT 0,
  total_reviews INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

-- Seller approval attempts, append-only. Latest row by seq is the current status.
CREATE TABLE IF NOT EXISTS seller_requests(
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL REFERENCES users(id),
  business_name TEXT NOT NULL,
  business_description TEXT NOT NULL,
  business_address TEXT NOT NULL,
  business_phone TEXT NOT NULL,
  document_url TEXT NOT NULL,
  document_type TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('pending','approved','rejected')),
  submitted_at TEXT NOT NULL,
  reviewed_at TEXT,
  reviewed_by TEXT,
  rejection_reason TEXT
);
CREATE INDEX IF NOT EXISTS idx_seller_requests_user ON seller_requests(user_id, seq);
CREATE INDEX IF NOT EXISTS idx_seller_requests_status ON seller_requests(status);

CREATE TABLE IF NOT EXISTS shops(
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL UNIQUE REFERENCES users(id),
  name TEXT NOT NULL
);

-- Products
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL CHECK (price > 0),
  stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
  status TEXT NOT NULL DEFAULT 'published' CHECK (status IN ('draft','published','out_of_stock','archived')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_seller ON products(seller_id);

-- Carts: one per user, lines ordered by position. No FK to products so
-- deleted products stay in storage and are dropped at read time.
CREATE TABLE IF NOT EXISTS cart_items(
  user_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  position INTEGER NOT NULL,
  created_at TEXT,
  updated_at TEXT,
  PRIMARY KEY (user_id, product_id)
);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  shipping_json TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  delivery_method TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  subtotal NUMERIC NOT NULL,
  shipping_fee NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('pending','confirmed','processing','shipped','delivered','cancelled')),
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  line_no INTEGER NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  unit_price NUMERIC NOT NULL,
  line_total NUMERIC NOT NULL,
  PRIMARY KEY (order_id, line_no)
);
CREATE INDEX IF NOT EXISTS idx_order_items_seller ON order_items(seller_id);

-- Reviews
CREATE TABLE IF NOT EXISTS reviews(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  user_name TEXT NOT NULL DEFAULT '',
  order_id TEXT NOT NULL REFERENCES orders(id),
  seller_id TEXT NOT NULL,
  product_id TEXT,
  rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
  comment TEXT,
  seller_reply TEXT,
  seller_reply_at TEXT,
  created_at TEXT NOT NULL,
  UNIQUE (user_id, order_id, seller_id)
);
CREATE INDEX IF NOT EXISTS idx_reviews_seller ON reviews(seller_id, created_at);
CREATE INDEX IF NOT EXISTS idx_reviews_product ON reviews(product_id);

-- Notifications (polled)
CREATE TABLE IF NOT EXISTS notifications(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  read INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);

-- Conversations, one per unordered participant pair
CREATE TABLE IF NOT EXISTS conversations(
  id TEXT PRIMARY KEY,
  pair_key TEXT NOT NULL UNIQUE,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  buyer_name TEXT NOT NULL DEFAULT '',
  seller_name TEXT NOT NULL DEFAULT '',
  shop_name TEXT NOT NULL DEFAULT '',
  product_id TEXT,
  last_message_content TEXT,
  last_message_sender TEXT,
  last_message_at TEXT,
  unread_buyer INTEGER NOT NULL DEFAULT 0 CHECK (unread_buyer >= 0),
  unread_seller INTEGER NOT NULL DEFAULT 0 CHECK (unread_seller >= 0),
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_buyer ON conversations(buyer_id);
CREATE INDEX IF NOT EXISTS idx_conversations_seller ON conversations(seller_id);

CREATE TABLE IF NOT EXISTS messages(
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
  sender_id TEXT NOT NULL,
  sender_name TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq);
`
	_, err := db.Exec(schema)
	return err
}

// seedUsers ensures an admin, two approved sellers and a customer exist.
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}
	}

	users := []u{
		mk("u-admin", "admin@makiti.test", "Admin", "admin", "Passw0rd!"),
		mk("u-awa", "awa@makiti.test", "Awa Diallo", "seller", "Passw0rd!"),
		mk("u-kofi", "kofi@makiti.test", "Kofi Mensah", "seller", "Passw0rd!"),
		mk("u-ines", "ines@makiti.test", "Ines Traore", "customer", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,full_name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	// Both demo sellers start approved.
	for _, id := range []string{"u-awa", "u-kofi"} {
		if _, err := tx.Exec(`
			INSERT INTO seller_requests(id,user_id,business_name,business_description,business_address,
			  business_phone,document_url,document_type,status,submitted_at,reviewed_at,reviewed_by)
			SELECT ?, ?, 'Demo shop', 'Seeded seller', 'Dakar', '+221000000', 'seed://doc', 'registry',
			  'approved', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, 'u-admin'
			WHERE NOT EXISTS (SELECT 1 FROM seller_requests WHERE user_id = ?)
		`, "sr-seed-"+id, id, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func seedCatalog(db *sqlx.DB) error {
	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO shops(id, owner_id, name) VALUES
		  ('shop-awa', 'u-awa', 'Awa Textiles'),
		  ('shop-kofi', 'u-kofi', 'Kofi Crafts')
		ON CONFLICT(id) DO NOTHING
	`); err != nil {
		return err
	}

	res, err := tx.Exec(`
		INSERT INTO products(id, seller_id, name, description, price, stock_quantity, status) VALUES
		  ('p-wax-001', 'u-awa', 'Wax print fabric (6 yards)', 'Cotton wax print', 25.00, 12, 'published'),
		  ('p-bogolan-01', 'u-awa', 'Bogolan throw', 'Hand-dyed mud cloth', 60.00, 4, 'published'),
		  ('p-kente-01', 'u-kofi', 'Kente stole', 'Handwoven strip cloth', 45.50, 8, 'published'),
		  ('p-basket-01', 'u-kofi', 'Bolga basket', 'Elephant grass basket', 30.00, 6, 'published')
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		applog.L().Info("seed.catalog", zap.Int64("products", n))
	}

	return tx.Commit()
}
